package deeplink

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) NavigateReplace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type fakeSaver struct {
	mu      sync.Mutex
	calls   []string
	err     error
	started chan struct{}
	release chan struct{}
	panics  bool
}

func (s *fakeSaver) SaveCard(ctx context.Context, cardID string) error {
	s.mu.Lock()
	s.calls = append(s.calls, cardID)
	err := s.err
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.panics {
		panic("boom")
	}
	return err
}

func (s *fakeSaver) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type cardIDRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *cardIDRecorder) Set(cardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, cardID)
}

func (r *cardIDRecorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newTestRouter(saver CardSaver) (*Router, *recordingNavigator) {
	nav := &recordingNavigator{}
	return NewRouter("took", nav, saver), nav
}

func TestHandleDeepLink_CardShareSavesThenNavigatesWithoutSaveParam(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ids := &cardIDRecorder{}

	router.HandleDeepLink(context.Background(), "took://card-share/42?save=true", ids.Set)

	if got := ids.IDs(); !reflect.DeepEqual(got, []string{"42"}) {
		t.Fatalf("setCardID calls = %v, want [42]", got)
	}
	if got := saver.Calls(); !reflect.DeepEqual(got, []string{"42"}) {
		t.Fatalf("SaveCard calls = %v, want [42]", got)
	}
	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-share/42"}) {
		t.Fatalf("navigations = %v, want [/card-share/42]", got)
	}
}

func TestHandleDeepLink_SameLogicalLinkHandledOnce(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)
	router.HandleDeepLink(ctx, "took://card-share/42", nil)

	if got := nav.Paths(); len(got) != 1 {
		t.Fatalf("navigations = %v, want exactly one", got)
	}
	if got := saver.Calls(); len(got) != 1 {
		t.Fatalf("SaveCard calls = %v, want exactly one", got)
	}
}

func TestHandleDeepLink_IdenticalInputIsIdempotent(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)
	}

	if got := nav.Paths(); len(got) != 1 {
		t.Fatalf("navigations = %v, want exactly one", got)
	}
	if got := saver.Calls(); len(got) != 1 {
		t.Fatalf("SaveCard calls = %v, want exactly one", got)
	}
}

func TestHandleDeepLink_EscapedCardIDDecodedOnce(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ids := &cardIDRecorder{}

	router.HandleDeepLink(context.Background(), "took://card-share/a%20b?save=true", ids.Set)

	if got := ids.IDs(); !reflect.DeepEqual(got, []string{"a b"}) {
		t.Fatalf("setCardID calls = %v, want [a b]", got)
	}
	if got := saver.Calls(); !reflect.DeepEqual(got, []string{"a b"}) {
		t.Fatalf("SaveCard calls = %v, want [a b]", got)
	}
	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-share/a%20b"}) {
		t.Fatalf("navigations = %v, want [/card-share/a%%20b]", got)
	}
}

func TestHandleDeepLink_CardDetailCarriesType(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})
	ids := &cardIDRecorder{}

	router.HandleDeepLink(context.Background(), "took://card-detail/7?type=given", ids.Set)

	if got := ids.IDs(); !reflect.DeepEqual(got, []string{"7"}) {
		t.Fatalf("setCardID calls = %v, want [7]", got)
	}
	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-detail/7?type=given"}) {
		t.Fatalf("navigations = %v, want [/card-detail/7?type=given]", got)
	}
}

func TestHandleDeepLink_CardDetailDefaultsType(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})

	router.HandleDeepLink(context.Background(), "took://card-detail/7", nil)

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-detail/7?type=receivedcard"}) {
		t.Fatalf("navigations = %v, want default type", got)
	}
}

func TestHandleDeepLink_InterestingHasNoCardSideEffect(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})
	ids := &cardIDRecorder{}

	router.HandleDeepLink(context.Background(), "took://received/interesting", ids.Set)

	if got := ids.IDs(); len(got) != 0 {
		t.Fatalf("setCardID calls = %v, want none", got)
	}
	if got := nav.Paths(); !reflect.DeepEqual(got, []string{RouteInteresting}) {
		t.Fatalf("navigations = %v, want [%s]", got, RouteInteresting)
	}
}

func TestHandleDeepLink_UnknownFallsBackToAuth(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})

	router.HandleDeepLink(context.Background(), "took://unknown/path", nil)

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{RouteAuth}) {
		t.Fatalf("navigations = %v, want [%s]", got, RouteAuth)
	}
}

func TestHandleDeepLink_NotesRoutes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"took://card-notes", "/card-notes"},
		{"took://card-notes?cardId=5", "/card-notes?cardId=5"},
		{"took://card-notes/detail?noteId=3&cardId=5", "/card-notes/detail?cardId=5&noteId=3"},
		{"took://card-notes/detail?noteId=3", "/card-notes/detail?noteId=3"},
		{"took://card-notes/detail?cardId=5", "/card-notes?cardId=5"},
	}
	for _, tt := range tests {
		router, nav := newTestRouter(&fakeSaver{})
		router.HandleDeepLink(context.Background(), tt.raw, nil)
		if got := nav.Paths(); !reflect.DeepEqual(got, []string{tt.want}) {
			t.Errorf("HandleDeepLink(%q) navigations = %v, want [%s]", tt.raw, got, tt.want)
		}
	}
}

func TestHandleDeepLink_EmptyURLIsNoop(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})

	router.HandleDeepLink(context.Background(), "", nil)

	if got := nav.Paths(); len(got) != 0 {
		t.Fatalf("navigations = %v, want none", got)
	}
	if router.Processed("") {
		t.Fatalf("empty url was marked processed")
	}
}

func TestHandleDeepLink_EmptyCardIDAbortsButStaysProcessed(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ids := &cardIDRecorder{}

	router.HandleDeepLink(context.Background(), "took://card-share/?save=true", ids.Set)

	if got := nav.Paths(); len(got) != 0 {
		t.Fatalf("navigations = %v, want none", got)
	}
	if got := saver.Calls(); len(got) != 0 {
		t.Fatalf("SaveCard calls = %v, want none", got)
	}
	if got := ids.IDs(); len(got) != 0 {
		t.Fatalf("setCardID calls = %v, want none", got)
	}
	if !router.Processed("took://card-share/") {
		t.Fatalf("aborted link should stay processed")
	}
}

func TestHandleDeepLink_MalformedLinkFallsBackAndIsNotRetried(t *testing.T) {
	router, nav := newTestRouter(&fakeSaver{})
	ctx := context.Background()

	router.HandleDeepLink(ctx, "took://card-share/%zz", nil)
	router.HandleDeepLink(ctx, "took://card-share/%zz", nil)

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{RouteAuth}) {
		t.Fatalf("navigations = %v, want a single fallback to %s", got, RouteAuth)
	}

	// The lock must have been released on the failure path.
	router.HandleDeepLink(ctx, "took://received/interesting", nil)
	if got := nav.Paths(); len(got) != 2 || got[1] != RouteInteresting {
		t.Fatalf("navigations = %v, want later link to be processed", got)
	}
}

func TestHandleDeepLink_SaveFailureAllowsRetryFromDistinctLink(t *testing.T) {
	saver := &fakeSaver{err: errors.New("network down")}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-share/42"}) {
		t.Fatalf("navigations = %v, want navigation despite save failure", got)
	}

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	router.HandleDeepLink(ctx, "took://card-share/42/again?save=true", nil)

	if got := saver.Calls(); !reflect.DeepEqual(got, []string{"42", "42"}) {
		t.Fatalf("SaveCard calls = %v, want a retry for card 42", got)
	}
}

func TestHandleDeepLink_SuccessfulSaveNotRepeatedFromDistinctLink(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)
	router.HandleDeepLink(ctx, "took://card-share/42/again?save=true", nil)

	if got := saver.Calls(); len(got) != 1 {
		t.Fatalf("SaveCard calls = %v, want exactly one", got)
	}
	if got := nav.Paths(); len(got) != 2 {
		t.Fatalf("navigations = %v, want both links to navigate", got)
	}
}

func TestHandleDeepLink_SaverPanicIsContained(t *testing.T) {
	saver := &fakeSaver{panics: true}
	router, nav := newTestRouter(saver)

	router.HandleDeepLink(context.Background(), "took://card-share/42?save=true", nil)

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-share/42"}) {
		t.Fatalf("navigations = %v, want navigation after contained panic", got)
	}
	router.mu.Lock()
	_, stillSaved := router.savedCards["42"]
	router.mu.Unlock()
	if stillSaved {
		t.Fatalf("card 42 should be released after a failed save")
	}
}

func TestHandleDeepLink_DeliveryDuringInFlightLinkIsDropped(t *testing.T) {
	saver := &fakeSaver{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)
	}()

	select {
	case <-saver.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("save never started")
	}

	router.HandleDeepLink(ctx, "took://received/interesting", nil)
	if router.Processed("took://received/interesting") {
		t.Fatalf("dropped delivery must not be marked processed")
	}

	close(saver.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("first delivery never finished")
	}

	if got := nav.Paths(); !reflect.DeepEqual(got, []string{"/card-share/42"}) {
		t.Fatalf("navigations = %v, want only the in-flight link", got)
	}

	// Dropped, not queued: a later delivery of the same link is processed fresh.
	router.HandleDeepLink(ctx, "took://received/interesting", nil)
	if got := nav.Paths(); len(got) != 2 {
		t.Fatalf("navigations = %v, want the redelivered link to be processed", got)
	}
}

func TestHandleDeepLink_ConcurrentDeliveriesNavigateOnce(t *testing.T) {
	saver := &fakeSaver{}
	router, nav := newTestRouter(saver)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			router.HandleDeepLink(ctx, "took://card-share/42?save=true", nil)
		}()
	}
	wg.Wait()

	if got := nav.Paths(); len(got) != 1 {
		t.Fatalf("navigations = %v, want exactly one", got)
	}
	if got := saver.Calls(); len(got) != 1 {
		t.Fatalf("SaveCard calls = %v, want exactly one", got)
	}
}
