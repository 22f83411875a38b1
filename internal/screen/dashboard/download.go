package dashboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

// CSVFilename is the name the export is saved under.
const CSVFilename = "patients.csv"

// Saver receives the CSV export.
type Saver interface {
	Save(ctx context.Context, filename string, r io.Reader) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, filename string, r io.Reader) error

func (f SaverFunc) Save(ctx context.Context, filename string, r io.Reader) error {
	return f(ctx, filename, r)
}

// DownloadCSV streams the backend's CSV export into saver. A non-2xx answer
// fails with "Failed to download" before saver is called. The failure
// becomes the screen's error state until the next successful fetch or
// export.
func (s *Screen) DownloadCSV(ctx context.Context, saver Saver) error {
	err := s.download(ctx, saver)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		s.logger.Zerolog().Warn().Err(err).Msg("csv download failed")
	}

	s.mu.Lock()
	if err != nil {
		s.err = err
	} else if apperrors.CodeOf(s.err) == apperrors.ErrDownload {
		s.err = nil
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Downloads.WithLabelValues(outcome).Inc()
	}
	return err
}

func (s *Screen) download(ctx context.Context, saver Saver) error {
	sess, err := s.source.Session(ctx)
	if err == nil && !sess.HasToken() {
		err = apperrors.NewNoSession()
	}
	if err != nil {
		return err
	}

	body, err := s.backend.DownloadPatients(ctx, sess.Token)
	if err != nil {
		if status := apiclient.StatusOf(err); status != 0 {
			return apperrors.NewDownloadStatus(status)
		}
		return apperrors.NewDownloadFailure(err)
	}
	defer body.Close()

	if err := saver.Save(ctx, CSVFilename, body); err != nil {
		return apperrors.NewDownloadFailure(err)
	}
	return nil
}

// FileSaver writes the export to disk. Path may name a file or an existing
// directory; empty means the working directory. The file only appears once
// the whole body has been written.
type FileSaver struct {
	Path string
}

// Target is the path Save writes filename to.
func (f FileSaver) Target(filename string) string {
	if f.Path == "" {
		return filename
	}
	if info, err := os.Stat(f.Path); err == nil && info.IsDir() {
		return filepath.Join(f.Path, filename)
	}
	return f.Path
}

func (f FileSaver) Save(_ context.Context, filename string, r io.Reader) error {
	target := f.Target(filename)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".innoguard-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to save %s: %w", target, err)
	}
	return nil
}
