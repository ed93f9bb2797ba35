// Package validation содержит функции приведения значений полей исходного файла.
package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// IsTruthy сообщает, означает ли значение поля «да» (без учёта регистра).
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}

// ParsePrice разбирает цену из строки. Пустое или некорректное значение трактуется
// как отсутствующее и даёт ноль.
func ParsePrice(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ParseQuantity разбирает количество из строки. Пустое, некорректное или
// неположительное значение даёт единицу.
func ParseQuantity(value string) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// FormatPrice форматирует цену как строку с двумя знаками после запятой.
func FormatPrice(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
