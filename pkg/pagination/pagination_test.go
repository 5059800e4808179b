// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

/*
TestFromRequest clamps out-of-range values.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  pagination.Params
	}{
		{"", pagination.Params{Page: 1, Limit: 24}},
		{"?page=3&limit=12", pagination.Params{Page: 3, Limit: 12}},
		{"?page=0&limit=0", pagination.Params{Page: 1, Limit: 24}},
		{"?page=-2&limit=500", pagination.Params{Page: 1, Limit: 24}},
		{"?page=two", pagination.Params{Page: 1, Limit: 24}},
	}

	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/v1/demos"+test.query, nil)
			assert.Equal(t, test.want, pagination.FromRequest(request))
		})
	}
}

/*
TestNewMeta computes page counts and the has_more flag.
*/
func TestNewMeta(t *testing.T) {
	assert.Equal(t, pagination.Meta{Page: 1, Limit: 24, Total: 50, TotalPages: 3, HasMore: true}, pagination.NewMeta(1, 24, 50))
	assert.Equal(t, pagination.Meta{Page: 3, Limit: 24, Total: 50, TotalPages: 3}, pagination.NewMeta(3, 24, 50))
	assert.Equal(t, pagination.Meta{Page: 1, Limit: 24}, pagination.NewMeta(1, 24, 0))
	assert.Equal(t, 48, pagination.Params{Page: 3, Limit: 24}.Offset())
}
