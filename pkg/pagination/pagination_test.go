package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/?limit=50&offset=10"))

	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(contextFor("/?limit=500"))
	if p.Limit != MaxLimit {
		t.Errorf("expected max limit %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(contextFor("/?offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, 20, 0)
	if resp.Total != 50 || resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected has_more to be true")
	}

	last := NewResponse([]string{"a"}, 21, 20, 20)
	if last.HasMore {
		t.Error("expected has_more to be false on the last page")
	}
}

func TestFromContext_Unparsable(t *testing.T) {
	p := FromContext(contextFor("/?limit=abc&offset=xyz"))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got %d/%d", p.Limit, p.Offset)
	}
}

func TestParams_Page(t *testing.T) {
	p := Params{Limit: 2, Offset: 2}
	resp := p.Page("/x", []string{"c", "d"}, 5)
	if !resp.HasMore || resp.Offset != 2 || resp.Limit != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Links) != 3 {
		t.Fatalf("expected self, next and previous, got %+v", resp.Links)
	}
	if resp.Links[1].URL != "/x?offset=4&limit=2" || resp.Links[2].URL != "/x?offset=0&limit=2" {
		t.Errorf("unexpected links %+v", resp.Links)
	}
}

func TestParams_Window(t *testing.T) {
	tests := []struct {
		p          Params
		n          int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.n)
		if start != tt.start || end != tt.end {
			t.Errorf("Window(%+v, %d) = %d,%d, want %d,%d", tt.p, tt.n, start, end, tt.start, tt.end)
		}
	}
}

func TestParams_HasNextAndPrevious(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	if !p.HasNext(25) {
		t.Error("expected next page")
	}
	if p.HasNext(20) {
		t.Error("expected no next page")
	}
	if !p.HasPrevious() {
		t.Error("expected previous page")
	}
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("expected no previous page at offset 0")
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset clamped to 0, got %d", p.PreviousOffset())
	}
}

func TestParams_Links_FirstPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	links := p.Links("/api/v1/patients/0xP1/audit", 25)

	if len(links) != 2 {
		t.Fatalf("expected self and next, got %d links", len(links))
	}
	if links[0].Relation != "self" || links[0].URL != "/api/v1/patients/0xP1/audit?offset=0&limit=10" {
		t.Errorf("unexpected self link %+v", links[0])
	}
	if links[1].Relation != "next" || links[1].URL != "/api/v1/patients/0xP1/audit?offset=10&limit=10" {
		t.Errorf("unexpected next link %+v", links[1])
	}
}

func TestParams_Links_LastPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	links := p.Links("/x", 25)

	if len(links) != 2 {
		t.Fatalf("expected self and previous, got %d links", len(links))
	}
	if links[1].Relation != "previous" || links[1].URL != "/x?offset=10&limit=10" {
		t.Errorf("unexpected previous link %+v", links[1])
	}
}

func TestParams_Links_NoResults(t *testing.T) {
	links := Params{Limit: 10}.Links("/x", 0)
	if len(links) != 1 || links[0].Relation != "self" {
		t.Errorf("expected only self, got %+v", links)
	}
}
