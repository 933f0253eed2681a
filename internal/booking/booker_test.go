package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/portal"
)

var dateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// fakePage answers the booker's page scripts from canned state.
type fakePage struct {
	calls []string

	slotTimes    []string
	dateInput    bool // date input present
	labelPresent bool

	clickedSlots []int
	dateSet      string

	failOn map[string]error
}

func newFakePage(times ...string) *fakePage {
	return &fakePage{
		slotTimes:    times,
		dateInput:    true,
		labelPresent: true,
		failOn:       map[string]error{},
	}
}

func (f *fakePage) step(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakePage) Navigate(url string, _ time.Duration) error { return f.step("navigate") }

func (f *fakePage) WaitVisible(sel string, _ time.Duration) error {
	if err := f.step("wait " + sel); err != nil {
		return err
	}
	if sel == portal.DefaultSelectors().SlotItem && len(f.slotTimes) == 0 {
		return fmt.Errorf("wait visible %s: timeout", sel)
	}
	return nil
}

func (f *fakePage) Click(sel string, _ time.Duration) error { return f.step("click " + sel) }

func (f *fakePage) Type(sel, text string, _ time.Duration) error { return f.step("type " + sel) }

// Evaluate dispatches on distinctive fragments of the booker's scripts.
func (f *fakePage) Evaluate(js string, out any) error {
	if err := f.step("evaluate"); err != nil {
		return err
	}
	switch {
	case strings.Contains(js, ".some("):
		*out.(*bool) = f.labelPresent
	case strings.Contains(js, ".find("):
		*out.(*bool) = f.labelPresent
	case strings.Contains(js, "dispatchEvent"):
		if !f.dateInput {
			*out.(*bool) = false
			return nil
		}
		f.dateSet = dateRe.FindString(js)
		*out.(*bool) = true
	case strings.Contains(js, ".length"):
		*out.(*int) = len(f.slotTimes)
	case strings.Contains(js, ".map("):
		*out.(*[]string) = f.slotTimes
	case strings.Contains(js, "slots["):
		var idx int
		fmt.Sscanf(js[strings.Index(js, "slots["):], "slots[%d]", &idx)
		f.clickedSlots = append(f.clickedSlots, idx)
		*out.(*bool) = idx >= 0 && idx < len(f.slotTimes)
	default:
		return fmt.Errorf("unexpected script: %s", js)
	}
	return nil
}

func (f *fakePage) WaitNetworkIdle(_ time.Duration) error { return f.step("idle") }
func (f *fakePage) Screenshot() ([]byte, error)           { return []byte("png"), nil }
func (f *fakePage) Location() (string, error)             { return "https://portal.example/bookings", nil }

func testBooker(page portal.Page) *Booker {
	return &Booker{
		Page:        page,
		Selectors:   portal.DefaultSelectors(),
		Timeouts:    portal.DefaultTimeouts(),
		SettleDelay: 0,
		Now:         func() time.Time { return time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC) },
		Sleep:       func(time.Duration) {},
		Log:         logger.Nop(),
	}
}

func TestBookSuccess(t *testing.T) {
	page := newFakePage("08:00", "20:15", "21:00")
	b := testBooker(page)

	out := b.Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})
	if !out.Success {
		t.Fatalf("Book failed: %v", out.Err)
	}
	if out.Date != "2024-06-10" {
		t.Errorf("date = %s, want 2024-06-10", out.Date)
	}
	if page.dateSet != "2024-06-10" {
		t.Errorf("date input set to %q", page.dateSet)
	}
	if len(page.clickedSlots) != 1 || page.clickedSlots[0] != 1 {
		t.Errorf("clicked slots = %v, want [1]", page.clickedSlots)
	}

	joined := strings.Join(page.calls, " | ")
	if !strings.Contains(joined, "click "+portal.DefaultSelectors().BookButton) {
		t.Errorf("confirm control never clicked: %s", joined)
	}
}

func TestBookFirstMatchWinsOnDuplicates(t *testing.T) {
	page := newFakePage("20:15", "20:15")
	b := testBooker(page)

	out := b.Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})
	if !out.Success {
		t.Fatalf("Book failed: %v", out.Err)
	}
	if len(page.clickedSlots) != 1 || page.clickedSlots[0] != 0 {
		t.Errorf("clicked slots = %v, want first in document order", page.clickedSlots)
	}
}

func TestBookMatchIsExactAndCaseSensitive(t *testing.T) {
	tests := []struct {
		name     string
		rendered []string
	}{
		{"prefix does not match", []string{"20:15:00"}},
		{"inner whitespace does not match", []string{"2 0:15"}},
		{"different time", []string{"18:15"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage(tt.rendered...)
			out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})
			if out.Success {
				t.Fatal("expected failure")
			}
			var snf *SlotNotFoundError
			if !errors.As(out.Err, &snf) {
				t.Fatalf("error type = %T, want *SlotNotFoundError", out.Err)
			}
		})
	}
}

func TestBookRenderedTimesAreTrimmed(t *testing.T) {
	page := newFakePage("  20:15  ")
	out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})
	if !out.Success {
		t.Fatalf("Book failed: %v", out.Err)
	}
}

func TestBookSlotNotFoundSkipsConfirm(t *testing.T) {
	page := newFakePage("08:00", "09:00")
	out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "18:15", DaysAhead: 7})

	if out.Success {
		t.Fatal("expected failure")
	}
	var snf *SlotNotFoundError
	if !errors.As(out.Err, &snf) {
		t.Fatalf("error type = %T, want *SlotNotFoundError", out.Err)
	}
	if snf.Timeslot != "18:15" {
		t.Errorf("timeslot = %s", snf.Timeslot)
	}
	for _, c := range page.calls {
		if c == "click "+portal.DefaultSelectors().BookButton {
			t.Error("confirm control clicked although no slot matched")
		}
	}
}

func TestBookNoSlotsRendered(t *testing.T) {
	page := newFakePage() // nothing renders within the bound
	out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})

	var snf *SlotNotFoundError
	if !errors.As(out.Err, &snf) {
		t.Fatalf("error type = %T, want *SlotNotFoundError", out.Err)
	}
}

func TestBookMissingDateInput(t *testing.T) {
	page := newFakePage("20:15")
	page.dateInput = false
	out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})

	var be *Error
	if !errors.As(out.Err, &be) {
		t.Fatalf("error type = %T, want *booking.Error", out.Err)
	}
	if be.Step != "set date" {
		t.Errorf("step = %q", be.Step)
	}
}

func TestBookConfirmTimeout(t *testing.T) {
	page := newFakePage("20:15")
	page.failOn["click "+portal.DefaultSelectors().BookButton] = fmt.Errorf("timeout")
	out := testBooker(page).Book(portal.ReservationRequest{Category: "Sauna", Timeslot: "20:15", DaysAhead: 7})

	var be *Error
	if !errors.As(out.Err, &be) {
		t.Fatalf("error type = %T, want *booking.Error", out.Err)
	}
	if be.Step != "confirm booking" {
		t.Errorf("step = %q", be.Step)
	}
}
