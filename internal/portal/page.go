package portal

import "time"

// Page is the single I/O boundary to the booking portal: one controllable
// browser page. The authenticator and booker drive the portal exclusively
// through it, so tests can substitute a scripted fake.
type Page interface {
	// Navigate loads url and waits for network activity to settle.
	Navigate(url string, timeout time.Duration) error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(sel string, timeout time.Duration) error
	// Click waits for the selector to be visible, then clicks it.
	Click(sel string, timeout time.Duration) error
	// Type waits for the selector, clears the field and types text into it.
	Type(sel, text string, timeout time.Duration) error
	// Evaluate runs a script on the page and unmarshals its result into out.
	// out may be nil when the result is not needed.
	Evaluate(js string, out any) error
	// WaitNetworkIdle blocks until no network activity has been observed for
	// a short quiet period, bounded by timeout.
	WaitNetworkIdle(timeout time.Duration) error
	// Screenshot captures the full page as PNG bytes.
	Screenshot() ([]byte, error)
	// Location reports the page's current URL, for diagnostics.
	Location() (string, error)
}

// Selectors are the element contracts the portal is expected to keep stable.
// A portal UI change that breaks one of these is a compatibility break, not a
// logic bug; they are therefore configuration, not constants.
type Selectors struct {
	LoginButton   string // federated-login trigger on the portal login page
	ProviderTile  string // identity-provider tile on the SSO chooser
	UsernameField string
	PasswordField string
	OTPField      string
	SubmitButton  string // submit control shared by the credential forms
	ConsentButton string // optional "stay signed in" style confirmation

	CategoryFilter string // category filter text input
	DateInput      string // calendar date input
	SlotItem       string // one bookable slot in the rendered list
	SlotStartTime  string // start-time label nested inside a slot item
	BookButton     string // confirm-booking control on the slot detail pane
}

// DefaultSelectors match the Delcom sports portal behind an Entra ID login.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginButton:   `[data-test-id="oidc-login-button"]`,
		ProviderTile:  `[data-title="Tilburg University"]`,
		UsernameField: `input[name="loginfmt"]`,
		PasswordField: `input[name="password"]`,
		OTPField:      `input[name="otc"]`,
		SubmitButton:  `input[type="submit"]`,
		ConsentButton: `button[type="submit"]`,

		CategoryFilter: `#tag-filterinput`,
		DateInput:      `input[type="date"]`,
		SlotItem:       `div[data-test-id="bookable-slot-list-item"]`,
		SlotStartTime:  `p[data-test-id="bookable-slot-start-time"] strong`,
		BookButton:     `button[data-test-id="details-book-button"]`,
	}
}

// Timeouts bound every individual wait in the login and booking sequences.
type Timeouts struct {
	Navigation  time.Duration // page loads and post-submit redirects
	Selector    time.Duration // element-visible waits in the login flow
	Consent     time.Duration // the optional consent control; short by design
	SlotList    time.Duration // first slot item rendering after filtering
	BookButton  time.Duration // confirm control on the detail pane
	NetworkIdle time.Duration // network-settle waits during booking
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation:  30 * time.Second,
		Selector:    20 * time.Second,
		Consent:     5 * time.Second,
		SlotList:    10 * time.Second,
		BookButton:  5 * time.Second,
		NetworkIdle: 15 * time.Second,
	}
}
