package reportsvc

import (
	"strings"
	"unicode"
)

// Division phân loại thô Food / Beverage
const (
	DivisionFood     = "Food"
	DivisionBeverage = "Beverage"
)

var beverageKeywords = []string{"bar", "drink", "drank", "wijn", "wine", "bier", "beer", "koffie", "coffee", "thee", "tea", "fris", "frisdrank", "cocktail", "spirit"}

var foodKeywords = []string{"keuken", "kitchen", "food", "eten", "gerecht", "lunch", "diner", "dinner", "dessert", "snack"}

// ClassifyDivision xác định division từ main category, sau đó từ leaf category.
// Không khớp keyword nào thì trả "" (line không vào breakdown division×giờ).
func ClassifyDivision(mainCategory *string, category string) string {
	if mainCategory != nil {
		if d := classifyName(*mainCategory); d != "" {
			return d
		}
	}
	return classifyName(category)
}

func classifyName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	tokens := strings.FieldsFunc(n, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if matchKeyword(n, tokens, beverageKeywords) {
		return DivisionBeverage
	}
	if matchKeyword(n, tokens, foodKeywords) {
		return DivisionFood
	}
	return ""
}

// Đuôi số nhiều / giảm nhẹ được chấp nhận sau keyword ngắn ("Bars", "Wijnen", "Biertjes")
var shortKeywordSuffixes = []string{"", "s", "e", "n", "en", "je", "jes", "tje", "tjes"}

// matchKeyword: keyword ngắn (dưới 6 ký tự) phải là nguyên một từ, có thể kèm đuôi số nhiều
// ("tea" khớp "Tea", "Teas" nhưng không khớp "Team"; "bar" không khớp "Barbecue", "Rhubarb"),
// keyword từ 6 ký tự trở lên khớp cả khi nằm giữa từ ghép ("Hoofdgerecht").
func matchKeyword(name string, tokens []string, keywords []string) bool {
	for _, kw := range keywords {
		if len(kw) >= 6 {
			if strings.Contains(name, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if isWordForm(tok, kw) {
				return true
			}
		}
	}
	return false
}

func isWordForm(tok, kw string) bool {
	rest, ok := strings.CutPrefix(tok, kw)
	if !ok {
		return false
	}
	for _, suffix := range shortKeywordSuffixes {
		if rest == suffix {
			return true
		}
	}
	return false
}
