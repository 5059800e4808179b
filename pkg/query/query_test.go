// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehtisham-afzal/21st/pkg/query"
)

/*
TestStringSlice drops blank entries.
*/
func TestStringSlice(t *testing.T) {
	assert.Nil(t, query.StringSlice(""))
	assert.Nil(t, query.StringSlice(" , "))
	assert.Equal(t, []string{"ui", "hooks"}, query.StringSlice(" ui, ,hooks,"))
}
