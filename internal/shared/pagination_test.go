package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageRequestDefaults(t *testing.T) {
	req := ParsePageRequest(url.Values{})
	require.Equal(t, 1, req.Page)
	require.Equal(t, 20, req.Size)
	require.Equal(t, 0, req.Offset())
}

func TestParsePageRequestCapsSize(t *testing.T) {
	req := ParsePageRequest(url.Values{"page": {"3"}, "size": {"500"}})
	require.Equal(t, 3, req.Page)
	require.Equal(t, 100, req.Size)
	require.Equal(t, 200, req.Offset())
}

func TestParsePageRequestIgnoresGarbage(t *testing.T) {
	req := ParsePageRequest(url.Values{"page": {"-2"}, "size": {"abc"}})
	require.Equal(t, 1, req.Page)
	require.Equal(t, 20, req.Size)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 45, p.TotalElements)
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.Size)
	require.Equal(t, 0, p.TotalPages)
}
