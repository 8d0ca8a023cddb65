package loader

import "strings"

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(name, "\ufeff")))
	return columnNameSanitizer.Replace(name)
}

// column is one logical input field and the header names accepted for it.
type column struct {
	field    string
	aliases  []string
	required bool
}

var stockColumns = []column{
	{field: "productCode", aliases: []string{"productCode", "product_code", "B2_COD", "codigo", "código", "cod"}, required: true},
	{field: "branch", aliases: []string{"branch", "B2_FILIAL", "filial"}, required: true},
	{field: "location", aliases: []string{"location", "B2_LOCAL", "local", "armazem", "armazém"}, required: true},
	{field: "description", aliases: []string{"description", "B1_DESC", "descricao", "descrição"}},
	{field: "balance", aliases: []string{"balance", "B2_QATU", "saldo", "saldo atual"}, required: true},
	{field: "reserved", aliases: []string{"reserved", "B2_RESERVA", "reserva", "empenho"}},
	{field: "onOrder", aliases: []string{"onOrder", "on_order", "B2_QPEDVEN", "pedido", "em pedido"}},
	{field: "unitCost", aliases: []string{"unitCost", "unit_cost", "B2_CM1", "custo", "custo medio", "custo médio"}},
}

var movementColumns = []column{
	{field: "productCode", aliases: []string{"productCode", "product_code", "D3_COD", "codigo", "código", "cod"}, required: true},
	{field: "branch", aliases: []string{"branch", "D3_FILIAL", "filial"}, required: true},
	{field: "location", aliases: []string{"location", "D3_LOCAL", "local", "armazem", "armazém"}, required: true},
	{field: "movementTypeCode", aliases: []string{"movementTypeCode", "movement_type_code", "D3_TM", "tm", "tipo movimento"}, required: true},
	{field: "quantity", aliases: []string{"quantity", "D3_QUANT", "quantidade", "qtd"}, required: true},
	{field: "date", aliases: []string{"date", "D3_EMISSAO", "emissao", "emissão", "data"}},
}

// headerIndex maps logical fields to column positions of one file.
type headerIndex map[string]int

func buildHeaderIndex(file string, header []string, columns []column) (headerIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeColumnName(h)
		if name == "" {
			continue
		}
		if _, exists := positions[name]; !exists {
			positions[name] = i
		}
	}

	idx := make(headerIndex, len(columns))
	for _, col := range columns {
		idx[col.field] = -1
		for _, alias := range col.aliases {
			if pos, ok := positions[normalizeColumnName(alias)]; ok {
				idx[col.field] = pos
				break
			}
		}
		if col.required && idx[col.field] < 0 {
			return nil, &ColumnError{File: file, Column: col.field}
		}
	}
	return idx, nil
}

func (h headerIndex) get(record []string, field string) string {
	pos, ok := h[field]
	if !ok || pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
