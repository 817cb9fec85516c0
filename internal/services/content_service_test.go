package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/pagelift/api/internal/domain"
)

func contentTestPage() domain.Page {
	return domain.Page{
		ID:        "page_1",
		Slug:      "posture-belt",
		Published: true,
		Content: domain.ContentRecord{
			Language:       "it",
			CurrencySymbol: "€",
			ProductName:    "Smart Posture Belt",
			Headline:       "Schiena dritta in 14 giorni",
			Price:          "€39,90",
			OriginalPrice:  "€79,90",
			HeroImage:      "https://img.test/hero.jpg",
			GalleryImages: []string{
				"https://img.test/hero.jpg",
				"https://img.test/side.jpg",
				"https://img.test/side.jpg",
				"https://img.test/back.jpg",
			},
			Benefits: []string{"uno", "due", "tre", "quattro", "cinque", "sei"},
			Announcements: []Announcement{
				{Text: "Spedizione gratuita"},
				{Text: "Pagamento alla consegna"},
			},
			Testimonials: []Testimonial{
				{Name: "Giulia", Text: "Ottimo"},
				{Name: "Marco", Text: "Consigliato"},
				{Name: "Sara", Text: "Perfetto"},
				{Name: "Luca", Text: "Funziona"},
			},
			Stock: &domain.StockConfig{Enabled: true},
			FormFields: []domain.FormField{
				{ID: "nome", Enabled: true},
				{ID: "fax", Enabled: false},
				{ID: "", Enabled: true},
				{ID: "telefono", Enabled: true},
			},
			Fragments: domain.Fragments{
				HeadHTML:     `<script>fbq('init');</script>`,
				ThankYouHTML: `<script>fbq('track','Purchase');</script>`,
			},
			ThankYou: &domain.ThankYouConfig{Enabled: true},
		},
	}
}

func newContentFixture(t *testing.T, pages ...domain.Page) (ContentService, *stubPageRepository) {
	t.Helper()

	if len(pages) == 0 {
		pages = []domain.Page{contentTestPage()}
	}
	repo := newStubPageRepository(pages...)

	fragments, err := NewFragmentService(FragmentServiceDeps{Strategy: NewPassthroughStrategy()})
	if err != nil {
		t.Fatalf("NewFragmentService: %v", err)
	}

	service, err := NewContentService(ContentServiceDeps{
		Pages:     repo,
		Pricing:   NewPricingEngine(),
		Fragments: fragments,
		Proof:     NewSocialProofSimulator(SocialProofSimulatorDeps{Pick: func(int) int { return 0 }}),
	})
	if err != nil {
		t.Fatalf("NewContentService: %v", err)
	}
	return service, repo
}

func TestBuildPageView(t *testing.T) {
	service, _ := newContentFixture(t)

	view, err := service.BuildPageView(context.Background(), "posture-belt")
	if err != nil {
		t.Fatalf("BuildPageView: %v", err)
	}

	if len(view.Benefits) != maxVisibleBenefits {
		t.Fatalf("benefits = %d, want %d", len(view.Benefits), maxVisibleBenefits)
	}

	wantGallery := []string{
		"https://img.test/hero.jpg",
		"https://img.test/side.jpg",
		"https://img.test/back.jpg",
	}
	if len(view.Gallery) != len(wantGallery) {
		t.Fatalf("gallery = %v, want %v", view.Gallery, wantGallery)
	}
	for i, img := range wantGallery {
		if view.Gallery[i] != img {
			t.Fatalf("gallery[%d] = %q, want %q", i, view.Gallery[i], img)
		}
	}

	if view.Announcements.Static {
		t.Fatal("two announcements must rotate")
	}
	if view.Announcements.IntervalSeconds != defaultAnnouncementInterval {
		t.Fatalf("announcement interval = %d, want %d", view.Announcements.IntervalSeconds, defaultAnnouncementInterval)
	}

	if view.Price.Current != "€39,90" {
		t.Fatalf("current price = %q", view.Price.Current)
	}
	if view.Price.DiscountPercent != 50 {
		t.Fatalf("discount = %d%%, want 50%%", view.Price.DiscountPercent)
	}

	if view.CTAText != "Ordina Ora" {
		t.Fatalf("cta fallback = %q, want Ordina Ora", view.CTAText)
	}

	if view.Stock.Quantity != domain.DefaultStockQuantity {
		t.Fatalf("stock quantity = %d, want default %d", view.Stock.Quantity, domain.DefaultStockQuantity)
	}
	if !strings.Contains(view.Stock.Message, "13") {
		t.Fatalf("stock message %q should mention the quantity", view.Stock.Message)
	}

	if len(view.FormFields) != 2 {
		t.Fatalf("form fields = %d, want 2 enabled fields with ids", len(view.FormFields))
	}

	if view.Reviews.InitialVisible != defaultInitialReviewCount {
		t.Fatalf("initial reviews = %d, want %d", view.Reviews.InitialVisible, defaultInitialReviewCount)
	}

	if view.Fragments.HeadHTML == "" {
		t.Fatal("head fragment should be delivered")
	}
	if view.Fragments.ThankYouHTML != "" {
		t.Fatal("thank-you fragment does not belong on the landing view")
	}

	if view.Labels["pay_on_delivery"] == "" {
		t.Fatal("labels must resolve with defaults")
	}
	if view.ThankYouSlug != "posture-belt-grazie" {
		t.Fatalf("thank-you slug = %q", view.ThankYouSlug)
	}
}

func TestBuildPageViewSocialProofSchedule(t *testing.T) {
	page := contentTestPage()
	page.Content.SocialProof = &domain.SocialProofConfig{Enabled: true, MaxShows: 2}
	service, _ := newContentFixture(t, page)

	view, err := service.BuildPageView(context.Background(), "posture-belt")
	if err != nil {
		t.Fatalf("BuildPageView: %v", err)
	}

	if !view.SocialProof.Enabled {
		t.Fatalf("social proof schedule should be enabled")
	}
	if len(view.SocialProof.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(view.SocialProof.Events))
	}

	plain, _ := newContentFixture(t)
	flat, err := plain.BuildPageView(context.Background(), "posture-belt")
	if err != nil {
		t.Fatalf("BuildPageView: %v", err)
	}
	if flat.SocialProof.Enabled {
		t.Fatalf("pages without the module must ship a disabled schedule")
	}
}

func TestBuildPageViewSingleAnnouncementIsStatic(t *testing.T) {
	page := contentTestPage()
	page.Content.Announcements = page.Content.Announcements[:1]
	service, _ := newContentFixture(t, page)

	view, err := service.BuildPageView(context.Background(), "posture-belt")
	if err != nil {
		t.Fatalf("BuildPageView: %v", err)
	}
	if !view.Announcements.Static {
		t.Fatal("single announcement must render statically")
	}
}

func TestBuildPageViewNotFound(t *testing.T) {
	unpublished := contentTestPage()
	unpublished.Published = false
	service, _ := newContentFixture(t, unpublished)

	if _, err := service.BuildPageView(context.Background(), "missing"); !errors.Is(err, ErrContentPageNotFound) {
		t.Fatalf("unknown slug error = %v, want ErrContentPageNotFound", err)
	}
	if _, err := service.BuildPageView(context.Background(), "posture-belt"); !errors.Is(err, ErrContentPageNotFound) {
		t.Fatalf("unpublished page error = %v, want ErrContentPageNotFound", err)
	}
	if _, err := service.BuildPageView(context.Background(), "  "); !errors.Is(err, ErrContentInvalidInput) {
		t.Fatalf("blank slug error = %v, want ErrContentInvalidInput", err)
	}
}

func TestBuildThankYouView(t *testing.T) {
	service, _ := newContentFixture(t)

	view, err := service.BuildThankYouView(context.Background(), "posture-belt-grazie", ThankYouVisitor{
		Name:    "Ana",
		Phone:   "3331234567",
		Total:   "49,90 €",
		OrderID: "ord_123",
	})
	if err != nil {
		t.Fatalf("BuildThankYouView: %v", err)
	}

	if view.Name != "Ana" || view.Phone != "3331234567" {
		t.Fatalf("visitor echo = %q/%q", view.Name, view.Phone)
	}
	if view.Total != "49,90 €" || view.OrderID != "ord_123" {
		t.Fatalf("order echo = %q/%q, want total and order id passed through", view.Total, view.OrderID)
	}
	if view.Title == "" || view.Message == "" {
		t.Fatal("confirmation copy must resolve from labels")
	}
	if view.Fragments.ThankYouHTML == "" {
		t.Fatal("thank-you pixel fragment should be delivered")
	}
	if view.Fragments.HeadHTML != "" {
		t.Fatal("landing fragments do not belong on the confirmation view")
	}
}

func TestBuildThankYouViewDefaultsVisitorName(t *testing.T) {
	service, _ := newContentFixture(t)

	view, err := service.BuildThankYouView(context.Background(), "posture-belt-grazie", ThankYouVisitor{})
	if err != nil {
		t.Fatalf("BuildThankYouView: %v", err)
	}
	if view.Name == "" {
		t.Fatal("missing visitor name must fall back to the label placeholder")
	}
}
