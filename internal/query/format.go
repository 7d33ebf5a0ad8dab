package query

import (
	"fmt"
	"strconv"
	"time"
)

// FormatValue renders a cell for text output. NULL reports ok=false.
func FormatValue(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		return typed, true
	case []byte:
		return string(typed), true
	case time.Time:
		return typed.Format(time.RFC3339Nano), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case fmt.Stringer:
		return typed.String(), true
	default:
		return fmt.Sprint(typed), true
	}
}
