package i18n

import "testing"

func TestDefaultLocalizerSharesEmbeddedCatalog(t *testing.T) {
	es := DefaultLocalizer("es")
	en := DefaultLocalizer("en")
	if es.translator != en.translator {
		t.Fatalf("default localizers built separate catalogs")
	}
	if got := en.T("labels.pen"); got != "Pen" {
		t.Fatalf("expected english label, got %q", got)
	}
}
