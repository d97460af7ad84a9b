package textproc

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// defaultDialectTables carries the built-in regional lexicons mapping
// dialect vocabulary onto central Thai.
var defaultDialectTables = map[string]map[string]string{
	"north": {
		"ยะ":     "นะ",
		"กึ๊ด":   "คิด",
		"ละอ่อน": "เด็ก",
	},
	"isan": {
		"อยู่จักได๋": "อยู่ที่ไหน",
		"กินเข่า":    "กินข้าว",
		"เฮ็ด":       "ทำ",
	},
	"south": {
		"ม่ายหล่าว": "ไม่หรอก",
		"เหลย":      "เลย",
		"แลน":       "วิ่ง",
	},
}

// DialectMapper rewrites dialect vocabulary to central Thai using built-in
// tables optionally extended by a CSV lexicon.
type DialectMapper struct {
	custom map[string]map[string]string
}

// NewDialectMapper returns a mapper with only the built-in tables.
func NewDialectMapper() *DialectMapper {
	return &DialectMapper{custom: make(map[string]map[string]string)}
}

// LoadCSV merges entries from a lexicon file with header columns
// dialect,source,target. Rows missing any column are skipped.
func (m *DialectMapper) LoadCSV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open lexicon %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read lexicon header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"dialect", "source", "target"} {
		if _, ok := columns[required]; !ok {
			return fmt.Errorf("lexicon %s missing %q column", path, required)
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read lexicon row: %w", err)
		}
		region := strings.ToLower(strings.TrimSpace(row[columns["dialect"]]))
		source := strings.TrimSpace(row[columns["source"]])
		target := strings.TrimSpace(row[columns["target"]])
		if region == "" || source == "" || target == "" {
			continue
		}
		if m.custom[region] == nil {
			m.custom[region] = make(map[string]string)
		}
		m.custom[region][source] = target
	}
	return nil
}

// MapText replaces dialect tokens with their central Thai equivalents. When
// region is empty every table is consulted in turn; custom entries override
// the built-ins.
func (m *DialectMapper) MapText(text, region string) string {
	tables := m.mergedTables()
	region = strings.ToLower(strings.TrimSpace(region))

	tokens := strings.Fields(text)
	for i, token := range tokens {
		if region != "" {
			if replacement, ok := tables[region][token]; ok {
				tokens[i] = replacement
			}
			continue
		}
		for _, table := range tables {
			if replacement, ok := table[token]; ok {
				tokens[i] = replacement
				break
			}
		}
	}
	return strings.Join(tokens, " ")
}

func (m *DialectMapper) mergedTables() map[string]map[string]string {
	merged := make(map[string]map[string]string, len(defaultDialectTables)+len(m.custom))
	for region, table := range defaultDialectTables {
		copied := make(map[string]string, len(table))
		for source, target := range table {
			copied[source] = target
		}
		merged[region] = copied
	}
	for region, table := range m.custom {
		if merged[region] == nil {
			merged[region] = make(map[string]string, len(table))
		}
		for source, target := range table {
			merged[region][source] = target
		}
	}
	return merged
}
