package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{PageRequest{Page: 3, PageSize: 500}, PageRequest{Page: 3, PageSize: MaxPageSize}},
		{PageRequest{Page: -2, PageSize: 5}, PageRequest{Page: 1, PageSize: 5}},
	}
	for _, tt := range tests {
		got := tt.in
		got.Normalize()
		if got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	req := PageRequest{Page: 2, PageSize: 10}
	if req.Offset() != 10 {
		t.Errorf("expected offset 10, got %d", req.Offset())
	}

	p := NewPage[string](nil, req, 21)
	if p.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", p.TotalPages)
	}
	if p.Data == nil || len(p.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", p.Data)
	}

	p = NewPage([]string{"a"}, PageRequest{Page: 1, PageSize: 10}, 0)
	if p.TotalPages != 0 {
		t.Errorf("expected 0 pages, got %d", p.TotalPages)
	}
}
