package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/cache"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/defect"
	"github.com/Valerijkk/defect-tracker-lite/internal/http/handlers"
	"github.com/Valerijkk/defect-tracker-lite/internal/reports"
)

func getSummary(t *testing.T, h *handlers.ReportsHandler, query string) (*httptest.ResponseRecorder, reports.Summary) {
	t.Helper()

	r := setupRouter(http.MethodGet, "/api/reports/summary", h.Summary)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary"+query, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var s reports.Summary

	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
	}

	return w, s
}

func TestSummaryCountsMatchList(t *testing.T) {
	f := newDefectsFixture(t)
	p1 := f.seedProject(t, "P1")
	p2 := f.seedProject(t, "P2")

	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p1.ID, Title: "a", Status: "new", Priority: "high"})
	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p1.ID, Title: "b", Status: "new", Priority: "low"})
	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p1.ID, Title: "c", Status: "closed", Priority: "high"})
	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p2.ID, Title: "d", Status: "new", Priority: "medium"})

	h := handlers.NewReportsHandler(f.defects, nil)

	t.Run("global totals", func(t *testing.T) {
		w, s := getSummary(t, h, "")

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		if s.Total != 4 {
			t.Errorf("total = %d, want 4", s.Total)
		}

		wantStatus := []reports.StatusEntry{{Status: "closed", Count: 1}, {Status: "new", Count: 3}}
		if len(s.ByStatus) != len(wantStatus) {
			t.Fatalf("by_status = %+v, want %+v", s.ByStatus, wantStatus)
		}
		for i, want := range wantStatus {
			if s.ByStatus[i] != want {
				t.Errorf("by_status[%d] = %+v, want %+v", i, s.ByStatus[i], want)
			}
		}

		wantPriority := []reports.PriorityEntry{{Priority: "high", Count: 2}, {Priority: "low", Count: 1}, {Priority: "medium", Count: 1}}
		if len(s.ByPriority) != len(wantPriority) {
			t.Fatalf("by_priority = %+v, want %+v", s.ByPriority, wantPriority)
		}
		for i, want := range wantPriority {
			if s.ByPriority[i] != want {
				t.Errorf("by_priority[%d] = %+v, want %+v", i, s.ByPriority[i], want)
			}
		}
	})

	t.Run("scoped to one project", func(t *testing.T) {
		_, s := getSummary(t, h, "?project_id="+itoa(p1.ID))

		if s.Total != 3 {
			t.Errorf("total = %d, want 3", s.Total)
		}
	})

	t.Run("total tracks the unfiltered list", func(t *testing.T) {
		_, s := getSummary(t, h, "")
		items := listDefects(t, f, "")

		if s.Total != len(items) {
			t.Errorf("summary total = %d, list length = %d", s.Total, len(items))
		}
	})

	t.Run("bad project_id", func(t *testing.T) {
		w, _ := getSummary(t, h, "?project_id=nope")

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestSummaryCacheReplay(t *testing.T) {
	f := newDefectsFixture(t)
	p := f.seedProject(t, "P1")
	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p.ID, Title: "a"})

	summaries := cache.NewMemory(time.Minute)
	canned := []byte(`{"by_status":[{"status":"stale","count":9}],"by_priority":[],"total":9}`)
	summaries.Set(context.Background(), reports.CacheKey(nil), canned)

	h := handlers.NewReportsHandler(f.defects, summaries)

	w, s := getSummary(t, h, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	// cached bytes win over a fresh aggregation
	if s.Total != 9 {
		t.Errorf("total = %d, want replayed 9", s.Total)
	}
}

func TestSummaryCachePopulatedOnMiss(t *testing.T) {
	f := newDefectsFixture(t)
	p := f.seedProject(t, "P1")
	f.seedDefect(t, defect.CreateDefectRequest{ProjectID: p.ID, Title: "a"})

	summaries := cache.NewMemory(time.Minute)
	h := handlers.NewReportsHandler(f.defects, summaries)

	w, _ := getSummary(t, h, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if _, ok := summaries.Get(context.Background(), reports.CacheKey(nil)); !ok {
		t.Error("summary was not cached after a miss")
	}
}

func TestDefectWritesInvalidateSummary(t *testing.T) {
	f := newDefectsFixture(t)
	p := f.seedProject(t, "P1")

	summaries := cache.NewMemory(time.Minute)
	defectsHandler := handlers.NewDefectsHandler(f.defects, f.projects, summaries)
	reportsHandler := handlers.NewReportsHandler(f.defects, summaries)

	// warm both the global key and the project key
	if w, _ := getSummary(t, reportsHandler, ""); w.Code != http.StatusOK {
		t.Fatalf("warm global: status %d", w.Code)
	}
	if w, _ := getSummary(t, reportsHandler, "?project_id="+itoa(p.ID)); w.Code != http.StatusOK {
		t.Fatalf("warm project: status %d", w.Code)
	}

	create := setupRouter(http.MethodPost, "/api/defects", defectsHandler.Create)

	if w := postJSON(t, create, "/api/defects", `{"project_id":`+itoa(p.ID)+`,"title":"Leak"}`); w.Code != http.StatusCreated {
		t.Fatalf("create: status %d", w.Code)
	}

	if _, ok := summaries.Get(context.Background(), reports.CacheKey(nil)); ok {
		t.Error("global summary key survived a defect write")
	}
	if _, ok := summaries.Get(context.Background(), reports.CacheKey(&p.ID)); ok {
		t.Error("project summary key survived a defect write")
	}

	// the next read reflects the new defect
	if _, s := getSummary(t, reportsHandler, ""); s.Total != 1 {
		t.Errorf("total after write = %d, want 1", s.Total)
	}
}
