package logger

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
	"unicode"
)

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL inlines the bound parameters into an SQL statement for
// display. SQLite uses `?` placeholders only, replaced left to right.
func ExplainSQL(sql string, escaper string, vars ...interface{}) string {
	for idx, v := range vars {
		if valuer, ok := v.(driver.Valuer); ok {
			v, _ = valuer.Value()
		}

		switch v := v.(type) {
		case bool:
			vars[idx] = fmt.Sprint(v)
		case time.Time:
			vars[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
		case *time.Time:
			if v != nil {
				vars[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
			} else {
				vars[idx] = "NULL"
			}
		case []byte:
			if isPrintable(v) {
				vars[idx] = escaper + strings.Replace(string(v), escaper, "\\"+escaper, -1) + escaper
			} else {
				vars[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			vars[idx] = fmt.Sprintf("%d", v)
		case float32, float64:
			vars[idx] = fmt.Sprintf("%.6f", v)
		case string:
			vars[idx] = escaper + strings.Replace(v, escaper, "\\"+escaper, -1) + escaper
		default:
			if v == nil {
				vars[idx] = "NULL"
			} else {
				vars[idx] = escaper + strings.Replace(fmt.Sprint(v), escaper, "\\"+escaper, -1) + escaper
			}
		}
	}

	for _, v := range vars {
		sql = strings.Replace(sql, "?", v.(string), 1)
	}

	return sql
}
