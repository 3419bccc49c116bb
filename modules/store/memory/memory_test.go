package memory

import (
	"log/slog"
	"testing"

	"github.com/flemzord/phrasecue/internal/core"
	"github.com/flemzord/phrasecue/internal/storage"
)

func TestProvisionRegistersAllStores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	appCtx := core.NewAppContext(slog.Default(), dir, dir)

	m := &Module{}
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("provision: %v", err)
	}

	checks := []struct {
		name  string
		check func(any) bool
	}{
		{"store.segments", func(v any) bool { _, ok := v.(storage.SegmentStore); return ok }},
		{"store.jobs", func(v any) bool { _, ok := v.(storage.JobStore); return ok }},
		{"store.words", func(v any) bool { _, ok := v.(storage.WordIndex); return ok }},
		{"store.analyses", func(v any) bool { _, ok := v.(storage.AnalysisStore); return ok }},
		{"store.quota", func(v any) bool { _, ok := v.(storage.QuotaStore); return ok }},
	}
	for _, c := range checks {
		svc, ok := appCtx.Service(c.name)
		if !ok {
			t.Errorf("service %q not registered", c.name)
			continue
		}
		if !c.check(svc) {
			t.Errorf("service %q has wrong type %T", c.name, svc)
		}
	}
}
