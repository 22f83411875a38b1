// Package dashboard is the patient dashboard screen: one page of patients
// at a time, page-level statistics, a pager and the CSV export.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/session"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
	"github.com/jwalitptl/innoguard/pkg/logger"
	"github.com/jwalitptl/innoguard/pkg/metrics"
)

// Limit is the page size requested from the backend.
const Limit = 10

// ErrSuperseded is returned by a fetch whose response was dropped because a
// newer fetch started after it.
var ErrSuperseded = errors.New("patient fetch superseded by a newer one")

// Backend is the part of the API client the dashboard needs.
type Backend interface {
	ListPatients(ctx context.Context, token string, limit, offset int) (*model.PatientPage, error)
	DownloadPatients(ctx context.Context, token string) (io.ReadCloser, error)
}

// Screen holds the dashboard state of one session. It is safe for
// concurrent use.
type Screen struct {
	backend Backend
	source  session.Source
	metrics *metrics.Metrics
	logger  *logger.Logger

	mu       sync.Mutex
	role     model.Role
	page     int
	total    int
	patients []model.PatientRecord
	loading  bool
	err      error
	seq      uint64
	cancel   context.CancelFunc
}

// Option configures a Screen.
type Option func(*Screen)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Screen) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Screen) { s.logger = l }
}

// NewScreen creates a dashboard reading its token from source.
func NewScreen(backend Backend, source session.Source, opts ...Option) *Screen {
	s := &Screen{
		backend: backend,
		source:  source,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount loads the current page.
func (s *Screen) Mount(ctx context.Context) error {
	return s.FetchPatients(ctx, s.Page())
}

// SetPage moves to page and loads it. Negative pages clamp to 0.
func (s *Screen) SetPage(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}
	return s.FetchPatients(ctx, page)
}

// FetchPatients loads page. Starting a fetch cancels the one in flight; a
// response that is no longer the latest is dropped and ErrSuperseded is
// returned to its caller. On failure the previously loaded patients and
// total stay in place and the error is kept as the screen's error state.
func (s *Screen) FetchPatients(ctx context.Context, page int) error {
	sess, err := s.source.Session(ctx)
	if err == nil && !sess.HasToken() {
		err = apperrors.NewNoSession()
	}
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		return err
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.page = page
	s.role = sess.Role
	s.loading = true
	s.mu.Unlock()

	result, err := s.backend.ListPatients(fetchCtx, sess.Token, Limit, page*Limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		if s.metrics != nil {
			s.metrics.FetchesDiscarded.Inc()
		}
		s.logger.Zerolog().Debug().Int("page", page).Msg("discarding superseded patient page")
		return ErrSuperseded
	}
	s.cancel = nil
	s.loading = false

	if err != nil {
		if status := apiclient.StatusOf(err); status != 0 {
			err = apperrors.NewFetchPatientsStatus(status)
		} else {
			err = apperrors.NewFetchPatientsFailure(err)
		}
		s.err = err
		s.logger.Zerolog().Warn().Err(err).Int("page", page).Msg("failed to fetch patients")
		return err
	}

	s.err = nil
	s.patients = result.Records
	// a reported total of 0 keeps the previous one
	if total, ok := result.Total(); ok && total > 0 {
		s.total = total
	}
	return nil
}

// Next advances one page when there is one.
func (s *Screen) Next(ctx context.Context) error {
	s.mu.Lock()
	page, ok := s.page+1, canNext(s.page, s.total)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.FetchPatients(ctx, page)
}

// Previous goes back one page; on the first page it does nothing.
func (s *Screen) Previous(ctx context.Context) error {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	if page == 0 {
		return nil
	}
	return s.FetchPatients(ctx, page-1)
}

// CanNext reports whether a page follows the current one.
func (s *Screen) CanNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return canNext(s.page, s.total)
}

// CanPrevious reports whether the current page is past the first.
func (s *Screen) CanPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page > 0
}

func canNext(page, total int) bool {
	return (page+1)*Limit < total
}

// PageLabel renders "Page p of n"; n is at least 1.
func (s *Screen) PageLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageLabel(s.page, s.total)
}

func pageLabel(page, total int) string {
	pages := int(math.Ceil(float64(total) / Limit))
	if pages == 0 {
		pages = 1
	}
	return fmt.Sprintf("Page %d of %d", page+1, pages)
}

// Page is the zero-based page last requested.
func (s *Screen) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Total is the last total the backend reported.
func (s *Screen) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Patients returns a copy of the loaded page.
func (s *Screen) Patients() []model.PatientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PatientRecord, len(s.patients))
	copy(out, s.patients)
	return out
}

// Role is the role of the session the last fetch ran with.
func (s *Screen) Role() model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Loading reports whether a fetch is in flight.
func (s *Screen) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error of the last fetch, or nil.
func (s *Screen) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats computes the statistics of the loaded page.
func (s *Screen) Stats() PageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.patients, s.total)
}

// Table builds the table of the loaded page.
func (s *Screen) Table() Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildTable(s.patients)
}

// View is a consistent snapshot of everything the dashboard renders.
type View struct {
	Role        model.Role `json:"role,omitempty"`
	Stats       PageStats  `json:"stats"`
	Table       Table      `json:"table"`
	Page        int        `json:"page"`
	Total       int        `json:"total"`
	PageLabel   string     `json:"page_label"`
	CanPrevious bool       `json:"can_previous"`
	CanNext     bool       `json:"can_next"`
	Loading     bool       `json:"loading"`
	Error       string     `json:"error,omitempty"`
}

// View takes the snapshot under a single lock.
func (s *Screen) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Role:        s.role,
		Stats:       ComputeStats(s.patients, s.total),
		Table:       BuildTable(s.patients),
		Page:        s.page,
		Total:       s.total,
		PageLabel:   pageLabel(s.page, s.total),
		CanPrevious: s.page > 0,
		CanNext:     canNext(s.page, s.total),
		Loading:     s.loading,
		Error:       apperrors.MessageOf(s.err),
	}
}
