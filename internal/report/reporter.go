package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/portal"
)

// ArtifactSink receives the failure screenshot. Called at most once per run.
type ArtifactSink interface {
	Upload(localPath, destName, mimeType string) error
}

// DirSink copies artifacts into a local directory. No remote storage backend
// is wired here; the sink boundary keeps that a drop-in replacement.
type DirSink struct {
	Dir string
}

func (s DirSink) Upload(localPath, destName, _ string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(s.Dir, destName))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// Reporter captures diagnostics on the run's terminal failure path. It is
// side-effect only and never propagates its own errors; a broken screenshot
// must not mask the original failure.
type Reporter struct {
	Sink ArtifactSink
	// Dir is where the screenshot is written before upload.
	Dir string
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
	Log logger.Logger
}

// OnFailure logs err verbatim, captures a full-page screenshot tagged with
// the failure timestamp, and hands it to the sink.
func (r *Reporter) OnFailure(page portal.Page, err error) {
	r.Log.Error("run failed", logger.Error(err))

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	name := fmt.Sprintf("failure-%s.png", now.Format("20060102-150405"))

	shot, serr := page.Screenshot()
	if serr != nil {
		r.Log.Warn("screenshot capture failed", logger.Error(serr))
		return
	}

	dir := r.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	local := filepath.Join(dir, name)
	if werr := os.WriteFile(local, shot, 0o644); werr != nil {
		r.Log.Warn("screenshot write failed", logger.Error(werr))
		return
	}
	r.Log.Info("screenshot captured", logger.String("path", local))

	if r.Sink == nil {
		return
	}
	if uerr := r.Sink.Upload(local, name, "image/png"); uerr != nil {
		r.Log.Warn("artifact upload failed", logger.Error(uerr))
		return
	}
	r.Log.Info("artifact uploaded", logger.String("name", name))
}
