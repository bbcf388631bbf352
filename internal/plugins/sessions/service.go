package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/apperror"
	"github.com/keyxmakerx/courtside/internal/events"
	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
)

// CourtService defines the business logic contract for court sessions.
// Mutations on one court are serialized; different courts proceed
// independently.
type CourtService interface {
	// Read side.
	Courts() []Court
	ListCourts(ctx context.Context) ([]CourtSnapshot, error)
	GetCourt(ctx context.Context, courtID string) (*CourtDocument, error)
	GetByID(ctx context.Context, courtID, id string) (*Session, error)
	ActiveCourts(ctx context.Context) ([]string, error)
	AllFinished(ctx context.Context) (map[string][]Session, error)
	Quote(s *Session) pricing.Quote

	// Upcoming bookings.
	CreateUpcoming(ctx context.Context, courtID string, input CreateSessionInput) (*Session, error)
	UpdateUpcoming(ctx context.Context, courtID, id string, patch SessionPatch) (*Session, error)
	CancelUpcoming(ctx context.Context, courtID, id string) error

	// Active session.
	Start(ctx context.Context, courtID, id string) (*Session, error)
	StartWalkIn(ctx context.Context, courtID string, input CreateSessionInput) (*Session, error)
	Tick(ctx context.Context, courtID string) (*Session, error)
	UpdateActive(ctx context.Context, courtID string, patch SessionPatch) (*Session, error)
	End(ctx context.Context, courtID string, input EndSessionInput) (*Session, error)

	// ResetHistory removes finished sessions and returns how many went.
	ResetHistory(ctx context.Context, tf Timeframe) (int, error)
}

// errUnchanged tells mutate the operation succeeded without a state change.
var errUnchanged = errors.New("sessions: unchanged")

// courtService implements CourtService. Each court's document is cached
// after first load; the cache only ever holds state that was persisted.
type courtService struct {
	repo      CourtRepository
	catalog   *pricing.Catalog
	courts    *CourtRegistry
	publisher events.Publisher
	loc       *time.Location

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]*CourtDocument
}

// NewCourtService creates a new court service. Rate intervals and report
// days are evaluated in loc.
func NewCourtService(repo CourtRepository, catalog *pricing.Catalog, courts *CourtRegistry, publisher events.Publisher, loc *time.Location) CourtService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &courtService{
		repo:      repo,
		catalog:   catalog,
		courts:    courts,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[string]*CourtDocument),
	}
}

func (s *courtService) clock() time.Time {
	return s.now().In(s.loc)
}

// Courts returns the venue's courts in display order.
func (s *courtService) Courts() []Court {
	return s.courts.All()
}

// ListCourts returns every court with its current sessions.
func (s *courtService) ListCourts(ctx context.Context) ([]CourtSnapshot, error) {
	courts := s.courts.All()
	out := make([]CourtSnapshot, 0, len(courts))
	for _, c := range courts {
		doc, err := s.GetCourt(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, CourtSnapshot{Court: c, Document: doc})
	}
	return out, nil
}

// GetCourt returns a copy of one court's document.
func (s *courtService) GetCourt(ctx context.Context, courtID string) (*CourtDocument, error) {
	if _, ok := s.courts.Lookup(courtID); !ok {
		return nil, apperror.NewNotFound("court not found")
	}
	lock := s.lockFor(courtID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(ctx, courtID)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// GetByID looks a session up in upcoming, active, then finished.
func (s *courtService) GetByID(ctx context.Context, courtID, id string) (*Session, error) {
	doc, err := s.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	found := doc.Find(id)
	if found == nil {
		return nil, apperror.NewNotFound("session not found")
	}
	return found, nil
}

// ActiveCourts lists the courts that currently have an active session.
func (s *courtService) ActiveCourts(ctx context.Context) ([]string, error) {
	var ids []string
	for _, c := range s.courts.All() {
		doc, err := s.GetCourt(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if doc.Active != nil {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// AllFinished returns the finished sessions of every court in the stored
// document, including courts no longer configured.
func (s *courtService) AllFinished(ctx context.Context) (map[string][]Session, error) {
	doc, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	out := make(map[string][]Session, len(doc.Courts))
	for id, cd := range doc.Courts {
		out[id] = cd.Finished
	}
	return out, nil
}

// Quote breaks down the current cost of a session.
func (s *courtService) Quote(sess *Session) pricing.Quote {
	return s.catalog.Quote(sess.PricingInputs(), s.clock())
}

// CreateUpcoming validates input and books a new upcoming session.
func (s *courtService) CreateUpcoming(ctx context.Context, courtID string, input CreateSessionInput) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, court Court, now time.Time) (*Session, error) {
		n, err := s.newSession(doc, court, input, now)
		if err != nil {
			return nil, err
		}
		doc.Upcoming = append(doc.Upcoming, *n)
		return &doc.Upcoming[len(doc.Upcoming)-1], nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("session booked",
		slog.String("court_id", courtID),
		slog.String("session_id", sess.ID),
		slog.String("scheduled_time", sess.ScheduledTime),
	)
	s.publish(ctx, events.TypeSessionCreated, sess)
	return sess, nil
}

// UpdateUpcoming applies patch to an upcoming session and re-estimates cost.
func (s *courtService) UpdateUpcoming(ctx context.Context, courtID, id string, patch SessionPatch) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, now time.Time) (*Session, error) {
		i := doc.upcomingIndex(id)
		if i < 0 {
			return nil, notIn(doc, id, StatusUpcoming)
		}
		target := &doc.Upcoming[i]
		applyPatch(target, patch)
		if err := validateSession(target); err != nil {
			return nil, err
		}
		normalize(target)
		s.price(target, now)
		return target, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeSessionUpdated, sess)
	return sess, nil
}

// CancelUpcoming removes an upcoming session without leaving a record.
func (s *courtService) CancelUpcoming(ctx context.Context, courtID, id string) error {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, _ time.Time) (*Session, error) {
		i := doc.upcomingIndex(id)
		if i < 0 {
			return nil, notIn(doc, id, StatusUpcoming)
		}
		removed := doc.Upcoming[i].Clone()
		doc.Upcoming = append(doc.Upcoming[:i], doc.Upcoming[i+1:]...)
		return removed, nil
	})
	if err != nil {
		return err
	}

	slog.Info("booking canceled", slog.String("court_id", courtID), slog.String("session_id", id))
	s.publish(ctx, events.TypeSessionCanceled, sess)
	return nil
}

// Start moves an upcoming session into the court's active slot.
func (s *courtService) Start(ctx context.Context, courtID, id string) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, now time.Time) (*Session, error) {
		if doc.Active != nil {
			return nil, apperror.NewConflict("court already has an active session")
		}
		i := doc.upcomingIndex(id)
		if i < 0 {
			return nil, notIn(doc, id, StatusUpcoming)
		}
		started := doc.Upcoming[i].Clone()
		doc.Upcoming = append(doc.Upcoming[:i], doc.Upcoming[i+1:]...)
		s.activate(started, now)
		doc.Active = started
		return started, nil
	})
	if err != nil {
		return nil, err
	}
	s.logStarted(sess)
	s.publish(ctx, events.TypeSessionStarted, sess)
	return sess, nil
}

// StartWalkIn creates a session and starts it immediately.
func (s *courtService) StartWalkIn(ctx context.Context, courtID string, input CreateSessionInput) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, court Court, now time.Time) (*Session, error) {
		if doc.Active != nil {
			return nil, apperror.NewConflict("court already has an active session")
		}
		n, err := s.newSession(doc, court, input, now)
		if err != nil {
			return nil, err
		}
		s.activate(n, now)
		doc.Active = n
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	s.logStarted(sess)
	s.publish(ctx, events.TypeSessionStarted, sess)
	return sess, nil
}

// Tick advances the active session's elapsed time by one second. It
// returns nil when the court has no active session. Cost is not touched:
// it depends only on pricing inputs, which a tick does not change.
func (s *courtService) Tick(ctx context.Context, courtID string) (*Session, error) {
	return s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, _ time.Time) (*Session, error) {
		if doc.Active == nil {
			return nil, errUnchanged
		}
		doc.Active.ActualDuration++
		return doc.Active, nil
	})
}

// UpdateActive applies patch to the active session and recomputes cost.
func (s *courtService) UpdateActive(ctx context.Context, courtID string, patch SessionPatch) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, now time.Time) (*Session, error) {
		if doc.Active == nil {
			return nil, apperror.NewNotFound("court has no active session")
		}
		applyPatch(doc.Active, patch)
		if err := validateSession(doc.Active); err != nil {
			return nil, err
		}
		normalize(doc.Active)
		s.price(doc.Active, now)
		return doc.Active, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeSessionUpdated, sess)
	return sess, nil
}

// End settles the active session and prepends it to the finished list.
// With no active session it returns (nil, nil).
func (s *courtService) End(ctx context.Context, courtID string, input EndSessionInput) (*Session, error) {
	sess, err := s.mutate(ctx, courtID, func(doc *CourtDocument, _ Court, now time.Time) (*Session, error) {
		if doc.Active == nil {
			return nil, errUnchanged
		}
		done := doc.Active.Clone()
		if err := s.settle(done, input, now); err != nil {
			return nil, err
		}
		done.Status = StatusFinished
		done.EndTime = &now
		doc.Finished = append([]Session{*done}, doc.Finished...)
		doc.Active = nil
		return &doc.Finished[0], nil
	})
	if err != nil || sess == nil {
		return nil, err
	}

	slog.Info("session ended",
		slog.String("court_id", courtID),
		slog.String("session_id", sess.ID),
		slog.String("payment_status", string(sess.PaymentStatus)),
		slog.String("cost", sess.Cost.StringFixed(2)),
	)
	s.publish(ctx, events.TypeSessionFinished, sess)
	return sess, nil
}

// settle fills in the charge and payment fields of a session being ended.
func (s *courtService) settle(sess *Session, input EndSessionInput, now time.Time) error {
	switch input.PaymentMethod {
	case MethodNone, MethodCash, MethodCard:
	default:
		return apperror.NewValidation("payment method must be cash or card")
	}

	cost := s.catalog.ComputeCost(sess.PricingInputs(), now)
	if input.FinalCost != nil {
		if input.FinalCost.IsNegative() {
			return apperror.NewValidation("final cost must not be negative")
		}
		cost = *input.FinalCost
	}
	sess.Cost = cost

	switch {
	case input.Cancel:
		sess.PaymentStatus = PaymentCanceled
		sess.PaymentMethod = MethodNone
	case cost.IsZero():
		sess.PaymentStatus = PaymentPaid
		sess.PaymentMethod = MethodNone
	default:
		if input.PaymentMethod == MethodNone {
			return apperror.NewValidation("payment method is required for a charged session")
		}
		sess.PaymentStatus = PaymentPaid
		sess.PaymentMethod = input.PaymentMethod
	}
	return nil
}

// ResetHistory removes finished sessions older than the timeframe's cutoff
// across all courts. Every court is locked for the duration.
func (s *courtService) ResetHistory(ctx context.Context, tf Timeframe) (int, error) {
	courts := s.courts.All()
	for _, c := range courts {
		lock := s.lockFor(c.ID)
		lock.Lock()
		defer lock.Unlock()
	}

	removed, err := s.repo.PruneFinished(ctx, tf.Cutoff(s.clock()))
	if err != nil {
		return 0, apperror.NewStorage(err)
	}

	s.mu.Lock()
	s.cache = make(map[string]*CourtDocument)
	s.mu.Unlock()

	total := 0
	for _, n := range removed {
		total += n
	}
	slog.Info("history reset", slog.String("timeframe", string(tf)), slog.Int("removed", total))

	if err := s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeHistoryReset,
		Removed:    total,
		OccurredAt: s.clock(),
	}); err != nil {
		slog.Warn("publishing event failed", slog.String("type", events.TypeHistoryReset), slog.Any("error", err))
	}
	return total, nil
}

// --- Internals ---

// mutation edits a working copy of a court document and returns the
// session it touched.
type mutation func(doc *CourtDocument, court Court, now time.Time) (*Session, error)

// mutate runs fn against a copy of the court's document under the court
// lock, persists the copy, and only then adopts it as the cached state. A
// failed write leaves the cache untouched.
func (s *courtService) mutate(ctx context.Context, courtID string, fn mutation) (*Session, error) {
	court, ok := s.courts.Lookup(courtID)
	if !ok {
		return nil, apperror.NewNotFound("court not found")
	}

	lock := s.lockFor(courtID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.load(ctx, courtID)
	if err != nil {
		return nil, err
	}
	work := current.Clone()

	result, err := fn(work, court, s.clock())
	if errors.Is(err, errUnchanged) {
		return result.Clone(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveCourt(ctx, courtID, work); err != nil {
		slog.Error("saving court document failed",
			slog.String("court_id", courtID),
			slog.Any("error", err),
		)
		return nil, apperror.NewStorage(err)
	}

	s.mu.Lock()
	s.cache[courtID] = work
	s.mu.Unlock()
	return result.Clone(), nil
}

// load returns the cached document for a court, reading it from the
// repository on first access. Callers must hold the court lock.
func (s *courtService) load(ctx context.Context, courtID string) (*CourtDocument, error) {
	s.mu.Lock()
	doc, ok := s.cache[courtID]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := s.repo.LoadCourt(ctx, courtID)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}

	s.mu.Lock()
	s.cache[courtID] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *courtService) lockFor(courtID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[courtID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[courtID] = l
	}
	return l
}

// newSession builds a validated upcoming session from caller input.
func (s *courtService) newSession(doc *CourtDocument, court Court, input CreateSessionInput, now time.Time) (*Session, error) {
	n := &Session{
		ID:                   s.newID(doc),
		CourtID:              court.ID,
		Type:                 court.Type,
		HourlyRate:           court.HourlyRate,
		ScheduledDuration:    input.ScheduledDuration,
		ScheduledTime:        input.ScheduledTime,
		IsStudent:            input.IsStudent,
		SelectedTimeInterval: input.SelectedTimeInterval,
		DiscountCards:        input.DiscountCards,
		HasSubscription:      input.HasSubscription,
		Items:                input.Items,
		Cost:                 decimal.Zero,
		Status:               StatusUpcoming,
		PaymentStatus:        PaymentUnpaid,
		PaymentMethod:        MethodNone,
		PlayerName:           input.PlayerName,
		ContactInfo:          input.ContactInfo,
		Notes:                input.Notes,
	}
	if input.ScheduledDate != nil {
		d := *input.ScheduledDate
		n.ScheduledDate = &d
	}
	if n.ScheduledDuration == 0 {
		n.ScheduledDuration = 1
	}
	if n.ScheduledTime == "" {
		n.ScheduledTime = defaultScheduledTime(now)
	}
	if n.Type == pricing.CourtSquash && n.SelectedTimeInterval == pricing.IntervalNone {
		n.SelectedTimeInterval = pricing.BookingInterval(now)
	}

	if err := validateSession(n); err != nil {
		return nil, err
	}
	normalize(n)
	s.price(n, now)
	return n, nil
}

// activate turns a session into the court's active session.
func (s *courtService) activate(sess *Session, now time.Time) {
	sess.Status = StatusActive
	sess.StartTime = &now
	sess.EndTime = nil
	sess.ActualDuration = 0
	if sess.Type == pricing.CourtSquash && sess.SelectedTimeInterval == pricing.IntervalNone {
		sess.SelectedTimeInterval = pricing.BookingInterval(now)
	}
	normalize(sess)
	s.price(sess, now)
}

func (s *courtService) price(sess *Session, now time.Time) {
	sess.Cost = s.catalog.ComputeCost(sess.PricingInputs(), now)
}

// newID returns a random ID not used by any session of the court.
func (s *courtService) newID(doc *CourtDocument) string {
	for {
		id := uuid.NewString()
		if doc.Find(id) == nil {
			return id
		}
	}
}

func (s *courtService) publish(ctx context.Context, eventType string, sess *Session) {
	e := events.Event{
		Type:          eventType,
		CourtID:       sess.CourtID,
		SessionID:     sess.ID,
		PlayerName:    sess.PlayerName,
		PaymentStatus: string(sess.PaymentStatus),
		PaymentMethod: string(sess.PaymentMethod),
		OccurredAt:    s.clock(),
	}
	cost := sess.Cost
	e.Cost = &cost
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("publishing event failed",
			slog.String("type", eventType),
			slog.String("session_id", sess.ID),
			slog.Any("error", err),
		)
	}
}

func (s *courtService) logStarted(sess *Session) {
	slog.Info("session started",
		slog.String("court_id", sess.CourtID),
		slog.String("session_id", sess.ID),
		slog.String("interval", string(sess.SelectedTimeInterval)),
	)
}

// notIn builds the error for a session that is missing from the list an
// operation needs: conflict when it exists in another state, else not found.
func notIn(doc *CourtDocument, id string, want Status) error {
	if other := doc.Find(id); other != nil {
		return apperror.NewConflict(fmt.Sprintf("session is %s, not %s", other.Status, want))
	}
	return apperror.NewNotFound("session not found")
}

// defaultScheduledTime is the current hour, kept inside opening hours.
func defaultScheduledTime(now time.Time) string {
	h := now.Hour()
	if h < firstBookableHour {
		h = firstBookableHour
	}
	if h > lastBookableHour {
		h = lastBookableHour
	}
	return strconv.Itoa(h) + ":00"
}
