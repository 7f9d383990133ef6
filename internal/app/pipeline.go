package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/nayana/internal/control"
	"github.com/ayusman/nayana/internal/cursor"
	"github.com/ayusman/nayana/internal/detector"
	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/identity"
	"github.com/ayusman/nayana/internal/pose"
	"github.com/ayusman/nayana/internal/server"
	"github.com/ayusman/nayana/internal/store"
)

// ErrAlreadyRunning is returned when Run is called twice concurrently.
var ErrAlreadyRunning = errors.New("tracking loop already running")

// Run is the tracking loop. It blocks in the calling goroutine until a quit
// event arrives (nil), ctx is cancelled (nil) or the camera fails (the
// wrapped read error). The cursor driver runs for exactly the duration of
// the loop.
//
// Each iteration:
// 1. Apply pending hotkey events
// 2. Read a frame
// 3. Detect the face and estimate its orientation
// 4. Calibrate, map to the screen and publish the cursor target
func (a *App) Run(ctx context.Context) (err error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.counters = store.SessionCounters{}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if cerr := a.camera.Close(); cerr != nil {
			a.logger.WithError(cerr).Warn("error closing camera")
		}
	}()

	a.startSession()
	reason := "quit"
	defer func() {
		if err != nil {
			reason = "camera: " + err.Error()
		}
		a.finishSession(reason)
	}()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.identity != nil {
		a.identity.Start(loopCtx)
		defer func() {
			cancel()
			a.identity.Wait()
		}()
	}

	a.driver.Start()
	defer a.driver.Stop()

	a.logger.WithFields(logrus.Fields{
		"screen": fmt.Sprintf("%dx%d", a.screenW, a.screenH),
		"camera": a.config.CameraID,
	}).Info("tracking started")

	var lastFlush, lastIdentity time.Time
	for {
		select {
		case <-ctx.Done():
			reason = "cancelled"
			a.logger.Info("tracking stopped")
			return nil
		default:
		}

		if a.drainEvents() {
			a.logger.Info("tracking stopped")
			return nil
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		face := a.processFrame(frame)
		if face != nil && a.identity != nil && time.Since(lastIdentity) >= a.config.IdentityInterval {
			lastIdentity = time.Now()
			a.submitIdentity(frame, face)
		}
		if a.preview != nil {
			a.preview.Show(frame)
		}
		frame.Close()

		if time.Since(lastFlush) >= SessionFlushInterval {
			lastFlush = time.Now()
			a.flushSession()
		}
	}
}

// drainEvents applies every queued event and reports whether one asked to quit.
func (a *App) drainEvents() bool {
	quit := false
	for _, ev := range a.queue.Drain() {
		res := a.controller.Handle(ev)
		if res.Quit {
			quit = true
			continue
		}
		if !res.Applied {
			continue
		}

		a.mu.Lock()
		switch ev.Kind {
		case hotkey.Toggle:
			a.counters.Toggles++
		case hotkey.Calibrate:
			a.counters.Calibrations++
		}
		a.mu.Unlock()

		if ev.Kind == hotkey.Toggle && a.indicator != nil {
			a.indicator.SetEnabled(res.Enabled)
		}
		a.recordEvent(ev, res)
	}
	return quit
}

// processFrame runs detection on one frame. It returns the face used for the
// estimate, or nil when the frame was skipped.
func (a *App) processFrame(frame *gocv.Mat) *detector.FaceLandmarks {
	a.mu.Lock()
	a.counters.Frames++
	a.mu.Unlock()

	faces, err := a.detector.Detect(frame)
	if err != nil {
		a.skip("detect", err)
		return nil
	}
	if len(faces) == 0 {
		a.skip("detect", detector.ErrNoFace)
		return nil
	}

	face := &faces[0]
	if _, err := a.processFace(face, frame.Cols(), frame.Rows()); err != nil {
		a.skip("estimate", err)
		return nil
	}
	return face
}

// processFace turns one face into a published cursor target.
func (a *App) processFace(face *detector.FaceLandmarks, width, height int) (server.Frame, error) {
	kp, err := detector.ExtractKeyPoints(face, a.config.KeyPoints, width, height)
	if err != nil {
		return server.Frame{}, err
	}

	est, err := a.estimator.Update(kp)
	if err != nil {
		return server.Frame{}, err
	}

	a.controller.Observe(est.Raw)
	calibrated := a.state.Calibration.Apply(est.Raw)

	// The target is published even while disabled so re-enabling resumes
	// from the current head position.
	x, y := a.mapper.Update(calibrated).Position()
	pos := cursor.Position{X: x, Y: y}
	a.target.Publish(pos)

	a.mu.Lock()
	a.counters.PoseFrames++
	a.seq++
	raw := est.Raw
	a.lastRaw = &raw
	a.lastPos = &pos
	tf := server.Frame{
		Timestamp:  time.Now().UnixMilli(),
		Seq:        a.seq,
		Raw:        est.Raw,
		Calibrated: calibrated,
		Cursor:     pos,
		Enabled:    a.state.Enabled(),
	}
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"yaw":   calibrated.Yaw,
		"pitch": calibrated.Pitch,
		"x":     x,
		"y":     y,
	}).Debug("screen position")

	if a.hub != nil {
		a.hub.Publish(tf)
	}
	return tf, nil
}

func (a *App) skip(stage string, err error) {
	a.mu.Lock()
	a.counters.SkippedFrames++
	a.mu.Unlock()

	if errors.Is(err, detector.ErrNoFace) {
		return
	}
	level := logrus.DebugLevel
	if !errors.Is(err, pose.ErrDegenerate) && !errors.Is(err, pose.ErrEmptyHistory) {
		level = logrus.WarnLevel
	}
	a.logger.WithError(err).WithField("stage", stage).Log(level, "frame skipped")
}

func (a *App) submitIdentity(frame *gocv.Mat, face *detector.FaceLandmarks) {
	rect := face.Bounds(frame.Cols(), frame.Rows(), CropPadding)
	crop, ok := identity.Crop(frame, rect)
	if !ok {
		return
	}
	defer crop.Close()

	jpeg, err := identity.EncodeJPEG(&crop)
	if err != nil {
		a.logger.WithError(err).Debug("identity crop skipped")
		return
	}
	a.identity.Submit(jpeg)
}

func (a *App) counterSnapshot() store.SessionCounters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counters
}

func (a *App) startSession() {
	if a.store == nil {
		return
	}
	sess := &store.Session{
		CameraID:     a.config.CameraID,
		ScreenWidth:  a.screenW,
		ScreenHeight: a.screenH,
	}
	if err := a.store.Sessions().Create(sess); err != nil {
		a.logger.WithError(err).Warn("failed to record session")
		return
	}
	a.mu.Lock()
	a.sessionID = sess.ID
	a.mu.Unlock()
	a.logger.WithField("session", sess.ID).Debug("session started")
}

func (a *App) currentSession() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

func (a *App) flushSession() {
	id := a.currentSession()
	if a.store == nil || id == "" {
		return
	}
	if err := a.store.Sessions().Update(id, a.counterSnapshot()); err != nil {
		a.logger.WithError(err).Warn("failed to update session")
	}
}

func (a *App) finishSession(reason string) {
	id := a.currentSession()
	if a.store == nil || id == "" {
		return
	}
	if err := a.store.Sessions().Finish(id, a.counterSnapshot(), reason); err != nil {
		a.logger.WithError(err).Warn("failed to finish session")
	}
}

func (a *App) recordEvent(ev hotkey.Event, res control.Result) {
	id := a.currentSession()
	if a.store == nil || id == "" {
		return
	}

	detail := ""
	switch ev.Kind {
	case hotkey.Toggle:
		detail = fmt.Sprintf("enabled=%t", res.Enabled)
	case hotkey.Calibrate:
		detail = fmt.Sprintf("yaw_offset=%.3f pitch_offset=%.3f", res.Offset.Yaw, res.Offset.Pitch)
	}

	err := a.store.Sessions().AddEvent(&store.SessionEvent{
		SessionID: id,
		Kind:      ev.Kind.String(),
		Source:    ev.Source,
		Detail:    detail,
		CreatedAt: ev.At,
	})
	if err != nil {
		a.logger.WithError(err).Warn("failed to record event")
	}
}
