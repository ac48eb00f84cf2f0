// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package aggregator implements RecordAggregator, the orchestrator that
// turns one submission directory into committed groups in its variables'
// record files.
package aggregator

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SnellerInc/hepcorpus/corpus/harmonize"
	"github.com/SnellerInc/hepcorpus/corpus/lru"
	"github.com/SnellerInc/hepcorpus/corpus/txn"
	"github.com/SnellerInc/hepcorpus/corpus/varindex"
	"github.com/SnellerInc/hepcorpus/corpus/writer"
	"github.com/SnellerInc/hepcorpus/corpus/yamldoc"
	"github.com/SnellerInc/hepcorpus/internal/stringset"
)

// ErrRejectedTable is wrapped with a reason and returned by processTable
// when a table cannot be processed but the rest of the submission can
// still proceed.
var ErrRejectedTable = errors.New("aggregator: rejected table")

// Aggregator owns the on-disk corpus: the variable index, the submission
// witness set, and the bounded cache of open writers.
type Aggregator struct {
	root        string
	vars        *varindex.Index
	submissions *stringset.Store
	writers     *lru.Cache[*writer.Writer]

	CountSubmissions    int
	CountTablesTotal    int
	CountTablesRejected int
}

// Open opens (initializing if necessary) the corpus rooted at root.
func Open(root string, cacheCapacity int) (*Aggregator, error) {
	vars, err := varindex.Open(root)
	if err != nil {
		return nil, fmt.Errorf("aggregator: opening variable index: %w", err)
	}
	submissions, err := stringset.Open(filepath.Join(root, "submissions.txt"))
	if err != nil {
		return nil, fmt.Errorf("aggregator: opening submission witness: %w", err)
	}
	a := &Aggregator{root: root, vars: vars, submissions: submissions}
	a.writers = lru.New[*writer.Writer](cacheCapacity, a.openWriter)
	return a, nil
}

func (a *Aggregator) openWriter(variable string) (*writer.Writer, error) {
	dir, err := a.vars.DirectoryFor(variable)
	if err != nil {
		return nil, err
	}
	return writer.Open(dir)
}

func submissionWitness(inspireRecord int64) string {
	return "ins" + strconv.FormatInt(inspireRecord, 10)
}

// ProcessSubmission parses and writes the submission directory at path. If
// the submission's INSPIRE id is already present in the witness set, the
// submission is skipped entirely: ProcessSubmission is idempotent.
func (a *Aggregator) ProcessSubmission(path string) error {
	sub, err := yamldoc.LoadSubmission(filepath.Join(path, "submission.yaml"))
	if err != nil {
		return fmt.Errorf("aggregator: loading %s: %w", path, err)
	}
	inspireRecord, err := sub.Header.InspireRecord()
	if err != nil {
		return fmt.Errorf("aggregator: %s: %w", path, err)
	}
	witness := submissionWitness(inspireRecord)
	if a.submissions.Contains(witness) {
		log.Printf("aggregator: skipping already-ingested submission %s", witness)
		return nil
	}

	t := txn.New()
	for i, table := range sub.Tables {
		a.CountTablesTotal++
		if err := a.processTable(t, path, table, inspireRecord, i+1); err != nil {
			if errors.Is(err, ErrRejectedTable) {
				log.Printf("warning: rejected table %s in %s: %s", table.Name, witness, err)
				a.CountTablesRejected++
				continue
			}
			return fmt.Errorf("aggregator: processing %s, table %s: %w", witness, table.Name, err)
		}
	}
	if err := a.submissions.Add(witness, t); err != nil {
		return fmt.Errorf("aggregator: recording witness %s: %w", witness, err)
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("aggregator: committing %s: %w", witness, err)
	}
	a.CountSubmissions++
	return nil
}

func tableNum(name string) (int64, error) {
	n := strings.TrimPrefix(name, "Table ")
	v, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("aggregator: parsing table name %q: %w", name, err)
	}
	return v, nil
}

func toQualifiers(qs []yamldoc.Qualifier) []harmonize.Qualifier {
	out := make([]harmonize.Qualifier, len(qs))
	for i, q := range qs {
		out[i] = harmonize.Qualifier{Name: q.Name, Value: q.Value}
	}
	return out
}

func variableName(h yamldoc.VarHeader) string {
	if strings.TrimSpace(h.Units) != "" {
		return h.Name + " (" + h.Units + ")"
	}
	return h.Name
}

func (a *Aggregator) processTable(t *txn.Txn, submissionDir string, table yamldoc.Table, inspireRecord int64, index int) error {
	num, err := tableNum(table.Name)
	if err != nil {
		num = int64(index)
	}

	doc, err := yamldoc.LoadDataFile(filepath.Join(submissionDir, table.DataFile))
	if err != nil {
		return fmt.Errorf("%w: loading data file: %s", ErrRejectedTable, err)
	}

	observables := joinKeywordValues(table.Keywords, "observables")
	defaultReaction := firstKeywordValue(table.Keywords, "reactions")
	cmenergiesRaw, hasCMEnergies := firstKeywordValueOK(table.Keywords, "cmenergies")

	for _, indepVar := range doc.IndependentVariables {
		if strings.TrimSpace(indepVar.Header.Name) == "" {
			return fmt.Errorf("%w: independent variable with empty name", ErrRejectedTable)
		}
		varX := variableName(indepVar.Header)

		for _, depVar := range doc.DependentVariables {
			if strings.TrimSpace(depVar.Header.Name) == "" {
				return fmt.Errorf("%w: dependent variable with empty name", ErrRejectedTable)
			}
			varY := depVar.Header.Name

			low, high, err := resolveCMEnergies(depVar, cmenergiesRaw, hasCMEnergies)
			if err != nil {
				return fmt.Errorf("%w: cmenergies: %s", ErrRejectedTable, err)
			}

			reaction := resolveReaction(depVar, defaultReaction)

			records := buildRecords(indepVar, depVar)
			if len(records) == 0 {
				continue
			}

			meta := writer.GroupMetadata{
				InspireRecord: inspireRecord,
				TableNum:      num,
				CMEnergies:    low,
				Reaction:      reaction,
				Observables:   observables,
				VarY:          varY,
			}
			// high is presently unused by the single-float disk format;
			// see DESIGN.md for why low is the value persisted.
			_ = high

			w, err := a.writers.Get(varX, t)
			if err != nil {
				return fmt.Errorf("aggregator: fetching writer for %q: %w", varX, err)
			}
			if err := w.WriteGroup(meta, records, t); err != nil {
				return fmt.Errorf("aggregator: writing group for %q: %w", varX, err)
			}
			if err := a.vars.UpdateCount(varX, len(records)); err != nil {
				return fmt.Errorf("aggregator: updating count for %q: %w", varX, err)
			}
		}
	}
	return nil
}

func joinKeywordValues(kws []yamldoc.Keyword, name string) string {
	for _, k := range kws {
		if k.Name == name {
			parts := make([]string, 0, len(k.Values))
			for _, v := range k.Values {
				parts = append(parts, fmt.Sprint(v))
			}
			return strings.Join(parts, ", ")
		}
	}
	return ""
}

func firstKeywordValue(kws []yamldoc.Keyword, name string) string {
	v, ok := firstKeywordValueOK(kws, name)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

func firstKeywordValueOK(kws []yamldoc.Keyword, name string) (interface{}, bool) {
	for _, k := range kws {
		if k.Name == name && len(k.Values) > 0 {
			return k.Values[0], true
		}
	}
	return nil, false
}

// resolveCMEnergies prefers the per-row "SQRT(S)/NUCLEON" qualifier, falls
// back to the table's cmenergies keyword, and defaults to (0, 0) rather
// than rejecting the table: SPEC_FULL.md does not list a missing
// cmenergies as a rejection cause.
func resolveCMEnergies(depVar yamldoc.DependentVariable, tableCMEnergies interface{}, hasTableCMEnergies bool) (low, high float32, err error) {
	qualifiers := toQualifiers(depVar.Qualifiers)
	values, qerr := harmonize.FindQualifier(qualifiers, "SQRT(S)/NUCLEON", false)
	if qerr == nil && len(values) > 0 {
		return harmonize.CMEnergies(values[0])
	}
	if hasTableCMEnergies {
		return harmonize.CMEnergies(tableCMEnergies)
	}
	return 0, 0, nil
}

// resolveReaction prefers the per-row "RE" qualifier, falling back to the
// table's default reaction keyword.
func resolveReaction(depVar yamldoc.DependentVariable, defaultReaction string) string {
	qualifiers := toQualifiers(depVar.Qualifiers)
	values, err := harmonize.FindQualifier(qualifiers, "RE", true)
	if err == nil && len(values) > 0 {
		return fmt.Sprint(values[0])
	}
	return defaultReaction
}

// buildRecords zips an independent variable's x values against a dependent
// variable's y values, rejecting rows whose y is the '-' sentinel, whose x
// bounds are non-numeric and not a LaTeX centered range, or whose y fails
// float coercion and is not a LaTeX centered range either.
func buildRecords(indepVar yamldoc.IndependentVariable, depVar yamldoc.DependentVariable) []writer.Record {
	n := len(indepVar.Values)
	if len(depVar.Values) < n {
		n = len(depVar.Values)
	}
	records := make([]writer.Record, 0, n)
	for i := 0; i < n; i++ {
		yRaw := depVar.Values[i].Value
		if s, ok := yRaw.(string); ok && s == "-" {
			continue
		}

		xLow, xHigh, ok := resolveXBounds(indepVar.Values[i])
		if !ok {
			continue
		}

		y, pmError, ok := resolveY(yRaw)
		if !ok {
			continue
		}

		errs := buildErrors(y, depVar.Values[i].Errors)
		if pmError != nil {
			errs = append(errs, *pmError)
		}

		records = append(records, writer.Record{
			XLow:   xLow,
			XHigh:  xHigh,
			Y:      y,
			Errors: errs,
		})
	}
	return records
}

func xBounds(v yamldoc.XValue) (low, high interface{}) {
	if v.HasRange() {
		return v.Low, v.High
	}
	return v.Value, v.Value
}

// resolveXBounds coerces an independent variable's value into (low, high).
// A single-value entry written as a LaTeX centered range ("<c> $\pm$ <d>")
// expands to (c-d, c+d) via harmonize.PlusMinusRange rather than being
// dropped as a non-numeric string.
func resolveXBounds(v yamldoc.XValue) (low, high float32, ok bool) {
	lowRaw, highRaw := xBounds(v)
	if !v.HasRange() {
		if s, isString := lowRaw.(string); isString {
			if lo, hi, prOK := harmonize.PlusMinusRange(s); prOK {
				return lo, hi, true
			}
		}
	}
	lo, err := harmonize.CoerceFloat(lowRaw)
	if err != nil {
		return 0, 0, false
	}
	hi, err := harmonize.CoerceFloat(highRaw)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// resolveY coerces a dependent variable's value into y. A LaTeX centered
// range string keeps its center as y and returns a synthesized "_pm"-labeled
// error carrying the half-width, per SPEC_FULL.md's plus-minus-range rule.
func resolveY(yRaw interface{}) (y float32, pmError *writer.ErrorValue, ok bool) {
	if s, isString := yRaw.(string); isString {
		if lo, hi, prOK := harmonize.PlusMinusRange(s); prOK {
			center := (lo + hi) / 2
			delta := (hi - lo) / 2
			return center, &writer.ErrorValue{Label: "_pm", Minus: -delta, Plus: delta}, true
		}
	}
	f, err := harmonize.CoerceFloat(yRaw)
	if err != nil {
		return 0, nil, false
	}
	return f, nil, true
}

func buildErrors(y float32, specs []yamldoc.ErrorSpec) []writer.ErrorValue {
	out := make([]writer.ErrorValue, 0, len(specs))
	for _, spec := range specs {
		var minus, plus float32
		var err error
		switch {
		case spec.AsymError != nil:
			minus, err = harmonize.ErrorValue(spec.AsymError.Minus, y)
			if err == nil {
				plus, err = harmonize.ErrorValue(spec.AsymError.Plus, y)
			}
		case spec.SymError != nil:
			plus, err = harmonize.ErrorValue(spec.SymError, y)
			minus = -plus
		default:
			continue
		}
		if err != nil {
			log.Printf("warning: dropping unparseable error %q: %s", spec.Label, err)
			continue
		}
		out = append(out, writer.ErrorValue{Label: spec.Label, Minus: minus, Plus: plus})
	}
	return out
}

// Close flushes every open writer into t and commits, releasing all
// corpus resources.
func (a *Aggregator) Close() error {
	t := txn.New()
	if err := a.writers.CloseAll(t); err != nil {
		return fmt.Errorf("aggregator: closing writers: %w", err)
	}
	if err := a.submissions.Close(t); err != nil {
		return fmt.Errorf("aggregator: closing submission witness: %w", err)
	}
	return t.Commit()
}
