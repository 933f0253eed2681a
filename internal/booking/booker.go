package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/portal"
)

// SlotNotFoundError means no rendered slot carried the requested start time
// within the wait bound.
type SlotNotFoundError struct {
	Timeslot string
	Rendered []string
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("booking: no slot at %s (rendered: %s)",
		e.Timeslot, strings.Join(e.Rendered, ", "))
}

// Error is any other booking failure: a wait bound exceeded or a required
// element missing. Step and elapsed time locate the failure.
type Error struct {
	Step    string
	Elapsed time.Duration
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("booking: %s after %s: %v", e.Step, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Booker applies the category and date filters and drives the slot select +
// confirm transition against the authenticated session.
type Booker struct {
	Page      portal.Page
	Selectors portal.Selectors
	Timeouts  portal.Timeouts

	// SettleDelay bounds the waits after filter and date changes; the portal
	// filters client-side with no completion signal, so the booker polls for
	// the expected condition and falls back to this bound.
	SettleDelay time.Duration

	// Now and Sleep are overridable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)

	Log logger.Logger
}

func (b *Booker) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Booker) sleep(d time.Duration) {
	if b.Sleep != nil {
		b.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Book attempts one reservation. It never retries; every failure is final for
// the run.
func (b *Booker) Book(req portal.ReservationRequest) portal.BookingOutcome {
	date := req.ResolveDate(b.now())
	out := portal.BookingOutcome{Request: req, Date: date}

	b.Log.Info("booking slot",
		logger.String("category", req.Category),
		logger.String("timeslot", req.Timeslot),
		logger.String("date", date))

	if err := b.applyFilters(req, date); err != nil {
		out.Err = err
		return out
	}
	if err := b.selectSlot(req); err != nil {
		out.Err = err
		return out
	}
	if err := b.confirm(); err != nil {
		out.Err = err
		return out
	}

	out.Success = true
	return out
}

func (b *Booker) applyFilters(req portal.ReservationRequest, date string) error {
	sel := b.Selectors
	start := time.Now()

	if err := b.Page.Type(sel.CategoryFilter, req.Category, b.Timeouts.Selector); err != nil {
		return &Error{Step: "type category filter", Elapsed: time.Since(start), Err: err}
	}

	// The filter narrows the category labels asynchronously; wait for the
	// wanted label to appear, bounded by the settle delay.
	b.settle(func() bool { return b.categoryLabelPresent(req.Category) })

	clicked, err := b.clickCategoryLabel(req.Category)
	if err != nil {
		return &Error{Step: "activate category", Elapsed: time.Since(start), Err: err}
	}
	if !clicked {
		b.Log.Warn("category label not found", logger.String("category", req.Category))
	}

	ok, err := b.setDate(date)
	if err != nil {
		return &Error{Step: "set date", Elapsed: time.Since(start), Err: err}
	}
	if !ok {
		return &Error{Step: "set date", Elapsed: time.Since(start),
			Err: fmt.Errorf("date input %s not present", sel.DateInput)}
	}

	// Give the re-render a settle window: wait until the slot count reports
	// the same value twice in a row, again bounded by the delay.
	var last = -1
	b.settle(func() bool {
		n, err := b.slotCount()
		if err != nil {
			return false
		}
		stable := n == last && n >= 0
		last = n
		return stable
	})
	return nil
}

func (b *Booker) selectSlot(req portal.ReservationRequest) error {
	start := time.Now()

	if err := b.Page.WaitVisible(b.Selectors.SlotItem, b.Timeouts.SlotList); err != nil {
		return &SlotNotFoundError{Timeslot: req.Timeslot}
	}

	times, err := b.slotTimes()
	if err != nil {
		return &Error{Step: "read slot times", Elapsed: time.Since(start), Err: err}
	}

	// Exact, case-sensitive, first match wins. Duplicate times are not
	// disambiguated further.
	idx := -1
	for i, t := range times {
		if strings.TrimSpace(t) == req.Timeslot {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &SlotNotFoundError{Timeslot: req.Timeslot, Rendered: times}
	}

	ok, err := b.clickSlot(idx)
	if err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("slot %d vanished before click", idx)
		}
		return &Error{Step: "select slot", Elapsed: time.Since(start), Err: err}
	}

	// Slot selection triggers an async detail fetch.
	if err := b.Page.WaitNetworkIdle(b.Timeouts.NetworkIdle); err != nil {
		return &Error{Step: "load slot details", Elapsed: time.Since(start), Err: err}
	}
	return nil
}

func (b *Booker) confirm() error {
	start := time.Now()

	if err := b.Page.Click(b.Selectors.BookButton, b.Timeouts.BookButton); err != nil {
		return &Error{Step: "confirm booking", Elapsed: time.Since(start), Err: err}
	}
	// Submission is async with no acknowledgment element; the network going
	// quiet is the accepted completion signal.
	if err := b.Page.WaitNetworkIdle(b.Timeouts.NetworkIdle); err != nil {
		return &Error{Step: "await booking submission", Elapsed: time.Since(start), Err: err}
	}
	return nil
}

// settle polls cond until it holds or the settle delay is spent. cond failing
// throughout is not an error; the bound itself is the fallback.
func (b *Booker) settle(cond func() bool) {
	const step = 250 * time.Millisecond
	deadline := b.SettleDelay
	for spent := time.Duration(0); spent < deadline; spent += step {
		if cond() {
			return
		}
		b.sleep(step)
	}
}

// --- page scripts ---

func (b *Booker) categoryLabelPresent(category string) bool {
	var present bool
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll('label')).some(el => el.textContent.trim() === %q)`,
		category)
	if err := b.Page.Evaluate(js, &present); err != nil {
		return false
	}
	return present
}

func (b *Booker) clickCategoryLabel(category string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const match = Array.from(document.querySelectorAll('label'))
			.find(el => el.textContent.trim() === %q);
		if (!match) return false;
		match.click();
		return true;
	})()`, category)
	err := b.Page.Evaluate(js, &clicked)
	return clicked, err
}

// setDate assigns the date input and dispatches both input and change events;
// the widget refreshes on explicit event dispatch only, not on raw value
// assignment.
func (b *Booker) setDate(date string) (bool, error) {
	var ok bool
	js := fmt.Sprintf(`(() => {
		const input = document.querySelector(%q);
		if (!input) return false;
		input.value = %q;
		['input', 'change'].forEach(type => {
			input.dispatchEvent(new Event(type, {bubbles: true}));
		});
		return true;
	})()`, b.Selectors.DateInput, date)
	err := b.Page.Evaluate(js, &ok)
	return ok, err
}

func (b *Booker) slotCount() (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, b.Selectors.SlotItem)
	err := b.Page.Evaluate(js, &n)
	return n, err
}

func (b *Booker) slotTimes() ([]string, error) {
	var times []string
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => {
		const t = el.querySelector(%q);
		return t ? t.textContent.trim() : '';
	})`, b.Selectors.SlotItem, b.Selectors.SlotStartTime)
	err := b.Page.Evaluate(js, &times)
	return times, err
}

func (b *Booker) clickSlot(idx int) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const slots = document.querySelectorAll(%q);
		const label = slots[%d] && slots[%d].querySelector(%q);
		if (!label) return false;
		label.click();
		return true;
	})()`, b.Selectors.SlotItem, idx, idx, b.Selectors.SlotStartTime)
	err := b.Page.Evaluate(js, &clicked)
	return clicked, err
}
