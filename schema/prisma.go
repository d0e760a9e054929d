package schema

import (
	"io"
	"regexp"
	"strings"
)

var (
	modelBlockRe = regexp.MustCompile(`(?s)(?:^|\n)\s*model\s+(\w+)\s*\{(.*?)\n\s*\}`)
	identRe      = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	mapAttrRe    = regexp.MustCompile(`@map\(\s*(?:name\s*:\s*)?"([^"]+)"\s*\)`)
	tableMapRe   = regexp.MustCompile(`^@@map\(\s*(?:name\s*:\s*)?"([^"]+)"\s*\)`)
)

type prismaField struct {
	name, typ, line string
}

// ParsePrisma extracts models from a Prisma schema. Relation fields and list
// fields are not storage columns and are left out; @map and @@map give the
// column and table names.
func ParsePrisma(r io.Reader) ([]Model, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")

	type block struct {
		name   string
		table  string
		fields []prismaField
	}
	var blocks []block
	modelNames := map[string]bool{}

	for _, m := range modelBlockRe.FindAllStringSubmatch(content, -1) {
		b := block{name: m[1], table: m[1]}
		for _, line := range strings.Split(m[2], "\n") {
			line = stripComment(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "@@") {
				if tm := tableMapRe.FindStringSubmatch(line); tm != nil {
					b.table = tm[1]
				}
				continue
			}
			parts := strings.Fields(line)
			if len(parts) < 2 || !identRe.MatchString(parts[0]) {
				continue
			}
			b.fields = append(b.fields, prismaField{name: parts[0], typ: parts[1], line: line})
		}
		modelNames[b.name] = true
		blocks = append(blocks, b)
	}

	models := make([]Model, 0, len(blocks))
	for _, b := range blocks {
		model := Model{Name: b.name, Table: b.table}
		for _, f := range b.fields {
			if isRelationField(f, modelNames) {
				continue
			}
			column := f.name
			if mm := mapAttrRe.FindStringSubmatch(f.line); mm != nil {
				column = mm[1]
			}
			model.Fields = append(model.Fields, column)
		}
		models = append(models, model)
	}
	return models, nil
}

func isRelationField(f prismaField, modelNames map[string]bool) bool {
	if strings.HasSuffix(f.typ, "[]") || strings.Contains(f.line, "@relation") {
		return true
	}
	base := strings.TrimSuffix(f.typ, "?")
	return modelNames[base]
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
