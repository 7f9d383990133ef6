package detector

import (
	"errors"
	"image"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestKeyPointIDs_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ids     KeyPointIDs
		wantErr bool
	}{
		{
			name: "default ids",
			ids:  DefaultKeyPointIDs(),
		},
		{
			name:    "negative index",
			ids:     KeyPointIDs{Left: -1, Right: 454, Top: 10, Bottom: 152, Front: 1},
			wantErr: true,
		},
		{
			name:    "index past mesh",
			ids:     KeyPointIDs{Left: 234, Right: NumLandmarks, Top: 10, Bottom: 152, Front: 1},
			wantErr: true,
		},
		{
			name:    "duplicate index",
			ids:     KeyPointIDs{Left: 234, Right: 234, Top: 10, Bottom: 152, Front: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ids.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractKeyPoints(t *testing.T) {
	t.Run("nil face returns ErrNoFace", func(t *testing.T) {
		_, err := ExtractKeyPoints(nil, DefaultKeyPointIDs(), 640, 480)
		if !errors.Is(err, ErrNoFace) {
			t.Errorf("expected ErrNoFace, got %v", err)
		}
	})

	t.Run("scales to frame pixels", func(t *testing.T) {
		ids := DefaultKeyPointIDs()
		face := FaceLandmarks{}
		face.Points[ids.Left] = Point3D{X: 0.25, Y: 0.5, Z: 0.1}
		face.Points[ids.Right] = Point3D{X: 0.75, Y: 0.5, Z: 0.1}
		face.Points[ids.Top] = Point3D{X: 0.5, Y: 0.25, Z: 0.0}
		face.Points[ids.Bottom] = Point3D{X: 0.5, Y: 0.75, Z: 0.0}
		face.Points[ids.Front] = Point3D{X: 0.5, Y: 0.5, Z: -0.05}

		kp, err := ExtractKeyPoints(&face, ids, 640, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if math.Abs(kp.Left.X-160) > epsilon || math.Abs(kp.Left.Y-240) > epsilon {
			t.Errorf("left = %v, want (160, 240, _)", kp.Left)
		}
		// Depth is scaled by width, not height.
		if math.Abs(kp.Left.Z-64) > epsilon {
			t.Errorf("left.Z = %f, want 64", kp.Left.Z)
		}
		if math.Abs(kp.Front.Z+32) > epsilon {
			t.Errorf("front.Z = %f, want -32", kp.Front.Z)
		}
		if math.Abs(kp.Top.Y-120) > epsilon || math.Abs(kp.Bottom.Y-360) > epsilon {
			t.Errorf("top/bottom = %v/%v", kp.Top, kp.Bottom)
		}
	})
}

func TestFaceLandmarks_Bounds(t *testing.T) {
	t.Run("empty face has empty bounds", func(t *testing.T) {
		face := FaceLandmarks{}
		if b := face.Bounds(640, 480, 10); !b.Empty() {
			t.Errorf("expected empty bounds, got %v", b)
		}
	})

	t.Run("synthetic face is padded and clipped", func(t *testing.T) {
		face := SyntheticFace(0, 0)
		b := face.Bounds(100, 100, 5)

		// Truncation may land a pixel either side of the exact extent.
		want := image.Rect(30, 25, 70, 75)
		if abs(b.Min.X-want.Min.X) > 1 || abs(b.Min.Y-want.Min.Y) > 1 ||
			abs(b.Max.X-want.Max.X) > 1 || abs(b.Max.Y-want.Max.Y) > 1 {
			t.Errorf("Bounds() = %v, want about %v", b, want)
		}

		clipped := face.Bounds(100, 100, 80)
		if clipped != image.Rect(0, 0, 100, 100) {
			t.Errorf("expected bounds clipped to frame, got %v", clipped)
		}
	})
}

func TestParseFaceResponse(t *testing.T) {
	t.Run("parses faces", func(t *testing.T) {
		faces, err := parseFaceResponse([]byte(`{"faces":[{"points":[{"x":0.1,"y":0.2,"z":0.3},{"x":0.4,"y":0.5,"z":0.6}],"score":0.9}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(faces) != 1 {
			t.Fatalf("expected 1 face, got %d", len(faces))
		}
		if faces[0].Points[1].Y != 0.5 {
			t.Errorf("point 1 Y = %f, want 0.5", faces[0].Points[1].Y)
		}
		if faces[0].Points[2] != (Point3D{}) {
			t.Error("unset points should stay zero")
		}
	})

	t.Run("no faces", func(t *testing.T) {
		faces, err := parseFaceResponse([]byte(`{"faces":[]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(faces) != 0 {
			t.Errorf("expected no faces, got %d", len(faces))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseFaceResponse([]byte(`{"error":"model missing"}`)); err == nil {
			t.Error("expected error from service error field")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := parseFaceResponse([]byte(`not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty faces by default", func(t *testing.T) {
		mock := NewMockDetector()

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if faces != nil {
			t.Errorf("expected nil faces, got %v", faces)
		}
	})

	t.Run("returns configured faces", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetFaces([]FaceLandmarks{SyntheticFace(0, 0)})

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(faces) != 1 {
			t.Errorf("expected 1 face, got %d", len(faces))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("tracker crashed")
		mock.SetError(expectedErr)

		faces, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if faces != nil {
			t.Errorf("expected nil faces when error is set, got %v", faces)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestSyntheticFace(t *testing.T) {
	ids := DefaultKeyPointIDs()

	t.Run("frontal face is symmetric", func(t *testing.T) {
		face := SyntheticFace(0, 0)
		left, right := face.Points[ids.Left], face.Points[ids.Right]

		if math.Abs((0.5-left.X)-(right.X-0.5)) > epsilon {
			t.Errorf("cheeks not symmetric: %v %v", left, right)
		}
		if face.Points[ids.Front].Z >= 0 {
			t.Error("nose tip should be closer to the camera (negative z)")
		}
		if face.Points[ids.Top].Y >= face.Points[ids.Bottom].Y {
			t.Error("forehead should be above the chin")
		}
	})

	t.Run("yaw moves right cheek away from camera", func(t *testing.T) {
		face := SyntheticFace(20, 0)
		if face.Points[ids.Right].Z >= face.Points[ids.Left].Z {
			t.Errorf("expected right cheek deeper than left, got %f vs %f",
				face.Points[ids.Right].Z, face.Points[ids.Left].Z)
		}
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
