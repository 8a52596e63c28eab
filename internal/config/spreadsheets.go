package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"monthly/internal/core"
)

// TotalLabel is the column label that marks the row-total column when a
// sheet does not set total_column explicitly.
const TotalLabel = "Total"

// Policy selects between the behaviours that differ across sheet layouts.
type Policy struct {
	Granularity          core.Granularity `yaml:"granularity"`
	OffsetReimbursements bool             `yaml:"offset_reimbursements"`
	StampLastUpdated     bool             `yaml:"stamp_last_updated"`
}

func DefaultPolicy() Policy {
	return Policy{
		Granularity:          core.YearMonth,
		OffsetReimbursements: true,
	}
}

func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	type raw Policy
	r := raw(DefaultPolicy())
	if err := node.Decode(&r); err != nil {
		return err
	}
	*p = Policy(r)
	return nil
}

// SheetConfig describes one sheet of a spreadsheet.
type SheetConfig struct {
	Key         string         `yaml:"-"`
	Name        string         `yaml:"name"`
	Class       string         `yaml:"class"`
	Columns     map[string]int `yaml:"columns"`
	TotalColumn int            `yaml:"total_column"`
	// Category and Account bind Category and Account sheets; both default
	// to the sheet name.
	Category string `yaml:"category"`
	Account  string `yaml:"account"`
}

// Column resolves a label to its 1-based column index.
func (s SheetConfig) Column(label string) (int, bool) {
	idx, ok := s.Columns[label]
	return idx, ok && idx > 0
}

// Total returns the 1-based index of the row-total column, or 0 when the
// sheet declares none.
func (s SheetConfig) Total() int {
	if s.TotalColumn > 0 {
		return s.TotalColumn
	}
	return s.Columns[TotalLabel]
}

func (s SheetConfig) BoundCategory() string {
	if s.Category != "" {
		return s.Category
	}
	return s.Name
}

func (s SheetConfig) BoundAccount() string {
	if s.Account != "" {
		return s.Account
	}
	return s.Name
}

// Sheets is an ordered sheet key -> SheetConfig mapping.
type Sheets []SheetConfig

func (s *Sheets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sheets must be a mapping", node.Line)
	}
	out := make(Sheets, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sc SheetConfig
		if err := node.Content[i+1].Decode(&sc); err != nil {
			return fmt.Errorf("sheet %q: %w", node.Content[i].Value, err)
		}
		sc.Key = node.Content[i].Value
		if sc.Name == "" {
			sc.Name = sc.Key
		}
		out = append(out, sc)
	}
	*s = out
	return nil
}

// SpreadSheetConfig describes one spreadsheet and its sheets.
type SpreadSheetConfig struct {
	Key    string `yaml:"-"`
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Class  string `yaml:"class"`
	Policy Policy `yaml:"policy"`
	Sheets Sheets `yaml:"sheets"`
}

func (c *SpreadSheetConfig) UnmarshalYAML(node *yaml.Node) error {
	type raw SpreadSheetConfig
	r := raw{Policy: DefaultPolicy()}
	if err := node.Decode(&r); err != nil {
		return err
	}
	*c = SpreadSheetConfig(r)
	return nil
}

// SpreadSheets is the ordered list of configured spreadsheets.
type SpreadSheets []SpreadSheetConfig

func (s *SpreadSheets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: spreadsheets must be a mapping", node.Line)
	}
	out := make(SpreadSheets, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sc SpreadSheetConfig
		if err := node.Content[i+1].Decode(&sc); err != nil {
			return fmt.Errorf("spreadsheet %q: %w", node.Content[i].Value, err)
		}
		sc.Key = node.Content[i].Value
		if sc.ID == "" {
			sc.ID = sc.Key
		}
		if sc.Name == "" {
			sc.Name = sc.Key
		}
		out = append(out, sc)
	}
	*s = out
	return nil
}

type layoutFile struct {
	Spreadsheets SpreadSheets `yaml:"spreadsheets"`
}

// LoadSpreadsheets reads the spreadsheet layout file at path.
func LoadSpreadsheets(path string) (SpreadSheets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheets config: %w", err)
	}
	sheets, err := ParseSpreadsheets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sheets, nil
}

// ParseSpreadsheets decodes and validates a spreadsheet layout document.
func ParseSpreadsheets(data []byte) (SpreadSheets, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spreadsheets config: %w", err)
	}
	if err := f.Spreadsheets.Validate(); err != nil {
		return nil, err
	}
	return f.Spreadsheets, nil
}

// Validate checks the layout for problems that make every write fail. It
// does not check classes; those are resolved when handlers are built.
func (s SpreadSheets) Validate() error {
	var errors []string
	for _, ss := range s {
		if strings.TrimSpace(ss.Class) == "" {
			errors = append(errors, fmt.Sprintf("spreadsheet %q: class is required", ss.Key))
		}
		if !ss.Policy.Granularity.Valid() {
			errors = append(errors, fmt.Sprintf("spreadsheet %q: invalid granularity %q", ss.Key, ss.Policy.Granularity))
		}
		for _, sh := range ss.Sheets {
			if strings.TrimSpace(sh.Class) == "" {
				errors = append(errors, fmt.Sprintf("sheet %q in %q: class is required", sh.Key, ss.Key))
			}
			if sh.Total() < 2 {
				errors = append(errors, fmt.Sprintf("sheet %q in %q: missing total column (set total_column or a %q column)", sh.Key, ss.Key, TotalLabel))
			}
			for label, idx := range sh.Columns {
				if idx < 2 {
					errors = append(errors, fmt.Sprintf("sheet %q in %q: column %q has index %d, column 1 holds the date", sh.Key, ss.Key, label, idx))
				}
			}
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("spreadsheets config validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
