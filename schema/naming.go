package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer namer interface
type Namer interface {
	TableName(model string) string
	ColumnName(table, column string) string
	ForeignKeyName(table string) string
	ReverseName(table string) string
	JoinTableName(owner, related string) string
	GoName(column string) string
}

// NamingStrategy tables, columns naming strategy. The zero value maps a
// model name to its snake_cased singular table name.
type NamingStrategy struct {
	TablePrefix    string
	PluralizeTable bool
}

// TableName convert model name to table name
func (ns NamingStrategy) TableName(str string) string {
	if ns.PluralizeTable {
		return ns.TablePrefix + inflection.Plural(toDBName(str))
	}
	return ns.TablePrefix + toDBName(str)
}

// ColumnName convert string to column name
func (ns NamingStrategy) ColumnName(table, column string) string {
	return toDBName(column)
}

// ForeignKeyName default foreign key column referencing table
func (ns NamingStrategy) ForeignKeyName(table string) string {
	return fmt.Sprintf("%s_id", table)
}

// ReverseName default reverse collection accessor for table
func (ns NamingStrategy) ReverseName(table string) string {
	return fmt.Sprintf("%s_set", table)
}

// JoinTableName default join table for a many to many relation
func (ns NamingStrategy) JoinTableName(owner, related string) string {
	return fmt.Sprintf("%s%s_%s", ns.TablePrefix, owner, related)
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// GoName convert a column name to an exported Go identifier
func (ns NamingStrategy) GoName(column string) string {
	parts := strings.Split(column, "_")
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, "")
}

var (
	smap sync.Map
	// https://github.com/golang/lint/blob/master/lint.go#L770
	commonInitialisms         = []string{"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM", "XML", "XSRF", "XSS"}
	commonInitialismsReplacer *strings.Replacer
)

func init() {
	var commonInitialismsForReplacer []string
	for _, initialism := range commonInitialisms {
		commonInitialismsForReplacer = append(commonInitialismsForReplacer, initialism, titleCaser.String(strings.ToLower(initialism)))
	}
	commonInitialismsReplacer = strings.NewReplacer(commonInitialismsForReplacer...)
}

func toDBName(name string) string {
	if name == "" {
		return ""
	} else if v, ok := smap.Load(name); ok {
		return fmt.Sprint(v)
	}

	var (
		value                          = commonInitialismsReplacer.Replace(name)
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	dbName := buf.String()
	smap.Store(name, dbName)
	return dbName
}
