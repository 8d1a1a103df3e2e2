//go:build sonic

package token

import (
	"github.com/bytedance/sonic"
)

var (
	jsonMarshal   = sonic.Marshal
	jsonUnmarshal = sonic.Unmarshal
)
