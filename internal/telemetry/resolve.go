package telemetry

import (
	"log/slog"
	"strings"
	"unicode"
)

// Resolution records which source column was claimed for each field.
type Resolution struct {
	Mapped  map[Field]string
	Dropped []string
}

// NormalizeName lowercases s and keeps letters and digits only, so that
// "Speed (km/h)" and "speed_kmh" compare equal.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolver renames source columns to canonical field names.
type Resolver struct {
	aliases []FieldAliases
	log     *slog.Logger
}

// NewResolver returns a Resolver over the given alias table. A nil table
// selects the built-in one.
func NewResolver(aliases []FieldAliases, log *slog.Logger) *Resolver {
	if aliases == nil {
		aliases = aliasTable
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{aliases: aliases, log: log}
}

// Resolve returns a copy of t with recognised columns renamed to their
// canonical field. Each field claims at most one column and each column is
// claimed at most once. Unrecognised columns keep their raw names; a column
// that is a lower-priority spelling of a field already resolved is dropped.
// Resolving an already resolved table returns an identical table.
func (r *Resolver) Resolve(t *Table) (*Table, Resolution) {
	res := Resolution{Mapped: make(map[Field]string)}

	// normalized name -> first column index carrying it
	byNorm := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		n := NormalizeName(c)
		if n == "" {
			continue
		}
		if _, seen := byNorm[n]; !seen {
			byNorm[n] = i
		}
	}

	newName := make([]string, len(t.Columns))
	claimed := make(map[int]bool)
	// normalized spellings of every field that found a column
	shadowed := make(map[string]bool)

	for _, fa := range r.aliases {
		candidates := append(append([]string(nil), fa.Aliases...), string(fa.Field))
		for _, alias := range candidates {
			idx, ok := byNorm[NormalizeName(alias)]
			if !ok || claimed[idx] {
				continue
			}
			claimed[idx] = true
			newName[idx] = string(fa.Field)
			for _, a := range candidates {
				shadowed[NormalizeName(a)] = true
			}
			res.Mapped[fa.Field] = t.Columns[idx]
			if t.Columns[idx] != string(fa.Field) {
				r.log.Debug("mapped column", "source", t.Columns[idx], "field", fa.Field)
			}
			break
		}
	}

	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !claimed[i] {
			if shadowed[NormalizeName(c)] {
				res.Dropped = append(res.Dropped, c)
				r.log.Debug("dropping shadowed column", "column", c)
				continue
			}
			newName[i] = c
		}
		keep = append(keep, i)
		cols = append(cols, newName[i])
	}

	rows := make([][]string, len(t.Rows))
	for ri, row := range t.Rows {
		out := make([]string, len(keep))
		for j, ci := range keep {
			if ci < len(row) {
				out[j] = row[ci]
			}
		}
		rows[ri] = out
	}
	return &Table{Columns: cols, Rows: rows}, res
}
