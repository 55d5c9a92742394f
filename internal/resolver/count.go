// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Count is an engagement counter. Backends disagree on the wire type, so it
// accepts a JSON number, a numeric string with optional digit grouping, or null.
// Anything unparseable, negative or out of range decodes as zero rather than
// rejecting the descriptor.
type Count int64

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(s))
	*c = 0
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 0 {
			*c = Count(n)
		}
		return nil
	}
	// Floats beyond int64 do not convert portably.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < math.MaxInt64 {
		*c = Count(f)
	}
	return nil
}
