//go:build !sonic

package token

import (
	"github.com/goccy/go-json"
)

var (
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
)
