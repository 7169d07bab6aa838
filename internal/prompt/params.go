package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a tool parameter. The browser sends form inputs as strings but
// numbers are accepted too.
type Value string

// UnmarshalJSON accepts a JSON string, number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tool parameter must be a string or number: %w", err)
	}
	*v = Value(n.String())
	return nil
}

func (v Value) String() string {
	return strings.TrimSpace(string(v))
}

// Count interprets the value as a non-negative item count. Anything that is
// not a number counts as zero.
func (v Value) Count() int {
	s := v.String()
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && f > 0 && f < math.MaxInt32 {
		return int(f)
	}
	return 0
}

// Params is the tool-specific parameter bag sent with a chat message.
type Params struct {
	Subject  Value `json:"subject"`
	Marks    Value `json:"marks"`
	ShortQty Value `json:"shortQty"`
	MedQty   Value `json:"medQty"`
	LongQty  Value `json:"longQty"`
}

// Context is the academic context taken from the user's profile.
type Context struct {
	Institution string
	Term        string
	Course      string
}
