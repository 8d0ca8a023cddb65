package loader

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var ErrInputNotFound = errors.New("input file not found")

var (
	DefaultStockNames    = []string{"stock", "estoque", "saldo", "sb2"}
	DefaultMovementNames = []string{"movements", "movimentos", "movimentacoes", "sd3"}
)

// IsSupported reports whether the loader can read the file name's format.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// MatchInputs picks the stock and movements files from a listing by base name
// prefix (see DefaultStockNames and DefaultMovementNames). The first match of
// each kind wins.
func MatchInputs(names []string) (stockName, movementsName string, err error) {
	for _, name := range names {
		base := strings.ToLower(path.Base(name))
		if !IsSupported(base) {
			continue
		}
		if stockName == "" && hasAnyPrefix(base, DefaultStockNames) {
			stockName = name
			continue
		}
		if movementsName == "" && hasAnyPrefix(base, DefaultMovementNames) {
			movementsName = name
		}
	}

	if stockName == "" {
		return "", "", fmt.Errorf("stock file: %w", ErrInputNotFound)
	}
	if movementsName == "" {
		return "", "", fmt.Errorf("movements file: %w", ErrInputNotFound)
	}
	return stockName, movementsName, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
