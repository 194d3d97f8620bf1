package routine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var fencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*")

// Candidate source keys per display field, compared after canonicalisation.
//
//nolint:gochecknoglobals // static key aliases.
var (
	analysisKeys    = []string{"analysis", "skinAnalysis", "summary", "assessment", "overview"}
	routineKeys     = []string{"routine", "routines", "skincareRoutine"}
	morningKeys     = []string{"morningRoutine", "morning", "am", "amRoutine", "dayRoutine"}
	nightKeys       = []string{"nightRoutine", "eveningRoutine", "night", "evening", "pm", "pmRoutine"}
	lifestyleKeys   = []string{"lifestyle", "lifestyleRecommendations", "lifestyleTips", "lifestyleAdvice"}
	doKeys          = []string{"do", "dos", "doList", "recommendations"}
	dontKeys        = []string{"dont", "donts", "doNot", "dontList", "avoid"}
	tipsKeys        = []string{"tips", "advice", "generalTips"}
	productsKeys    = []string{"products", "productOptions", "productRecommendations", "recommendedProducts", "options"}
	stepsKeys       = []string{"steps"}
	titleKeys       = []string{"title", "step", "name", "stepName"}
	descriptionKeys = []string{"description", "instructions", "details", "how"}
	nameKeys        = []string{"name", "productName", "product", "title"}
	usageKeys       = []string{"usage", "howToUse", "use", "directions", "instructions"}
	ingredientKeys  = []string{"ingredients", "keyIngredients", "activeIngredients"}
	linkKeys        = []string{"link", "url", "buyLink", "productLink"}
	brandKeys       = []string{"brand"}
)

// Normalize maps raw AI output onto a Report. It never fails: unusable input yields Default().
//
// Code fences are stripped first. When the text is not valid JSON the outermost {...} substring is tried.
func Normalize(raw string) Report {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return Default()
		}
		if err = json.Unmarshal([]byte(cleaned[start:end+1]), &v); err != nil {
			return Default()
		}
	}
	return NormalizeValue(v)
}

// NormalizeValue maps already decoded JSON onto a Report. Anything but an object yields Default().
func NormalizeValue(v any) Report {
	// A JSON string may itself hold the encoded report.
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			if _, isObject := inner.(map[string]any); isObject {
				return NormalizeValue(inner)
			}
		}
		return Default()
	}

	root, ok := v.(map[string]any)
	if !ok {
		return Default()
	}
	obj := index(root)

	report := Default()
	report.Analysis = text(obj.get(analysisKeys...))

	morning, night := obj.get(morningKeys...), obj.get(nightKeys...)
	if nested, isObject := asObject(obj.get(routineKeys...)); isObject {
		if morning == nil {
			morning = nested.get(morningKeys...)
		}
		if night == nil {
			night = nested.get(nightKeys...)
		}
	}
	report.MorningRoutine = steps(morning)
	report.NightRoutine = steps(night)

	if lifestyle, isObject := asObject(obj.get(lifestyleKeys...)); isObject {
		report.Lifestyle.Do = stringList(lifestyle.get(doKeys...))
		report.Lifestyle.Dont = stringList(lifestyle.get(dontKeys...))
		report.Lifestyle.Tips = stringList(lifestyle.get(tipsKeys...))
	} else if list := stringList(obj.get(lifestyleKeys...)); len(list) > 0 {
		report.Lifestyle.Tips = list
	}

	report.Products = products(obj.get(productsKeys...), 0)
	if len(report.Products) == 0 {
		report.Products = stepProducts(report.MorningRoutine, report.NightRoutine)
	}
	return report
}

// object is a JSON object indexed by canonical key.
type object map[string]any

func index(m map[string]any) object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Sorted so that keys colliding after canonicalisation resolve deterministically.
	sort.Strings(keys)
	o := make(object, len(m))
	for _, k := range keys {
		c := canonical(k)
		if _, exists := o[c]; !exists {
			o[c] = m[k]
		}
	}
	return o
}

func asObject(v any) (object, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return index(m), true
}

// get returns the first present value among the candidate keys.
func (o object) get(candidates ...string) any {
	for _, c := range candidates {
		if v, ok := o[canonical(c)]; ok && v != nil {
			return v
		}
	}
	return nil
}

// canonical lowercases s and drops everything but letters and digits, so morning_routine matches morningRoutine.
func canonical(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	case []any:
		parts := stringList(t)
		return strings.Join(parts, " ")
	case map[string]any:
		o := index(t)
		for _, keys := range [][]string{{"text", "tip", "item", "summary", "description"}, titleKeys} {
			if s := text(o.get(keys...)); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringList accepts a list of strings, a list of objects with a text-like field, or a single string.
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func steps(v any) []Step {
	if o, isObject := asObject(v); isObject {
		v = o.get(stepsKeys...)
	}
	items, ok := v.([]any)
	if !ok {
		return []Step{}
	}
	out := make([]Step, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, Step{Title: s, Description: "", Products: []Product{}})
			}
		case map[string]any:
			o := index(t)
			step := Step{
				Title:       text(o.get(titleKeys...)),
				Description: text(o.get(descriptionKeys...)),
				Products:    products(o.get(productsKeys...), MaxProductsPerStep),
			}
			if step.Title == "" && step.Description == "" && len(step.Products) == 0 {
				continue
			}
			out = append(out, step)
		}
	}
	return out
}

// products converts a list of product options. A positive limit drops the options past it.
func products(v any, limit int) []Product {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any, string:
		items = []any{t}
	}
	out := make([]Product, 0, len(items))
	for _, item := range items {
		if limit > 0 && len(out) == limit {
			break
		}
		if p, ok := product(item); ok {
			out = append(out, p)
		}
	}
	return out
}

func product(v any) (Product, bool) {
	var p Product
	switch t := v.(type) {
	case string:
		p = Product{Name: strings.TrimSpace(t), Usage: "", Ingredients: []string{}, Link: "", Image: ""}
	case map[string]any:
		o := index(t)
		name := text(o.get(nameKeys...))
		if brand := text(o.get(brandKeys...)); brand != "" && !strings.Contains(
			strings.ToLower(name), strings.ToLower(brand)) {
			name = strings.TrimSpace(brand + " " + name)
		}
		p = Product{
			Name:        name,
			Usage:       text(o.get(usageKeys...)),
			Ingredients: ingredients(o.get(ingredientKeys...)),
			Link:        text(o.get(linkKeys...)),
			Image:       "",
		}
	default:
		return Product{}, false
	}
	if p.Name == "" {
		return Product{}, false
	}
	p.Image = ImageFor(p.Name)
	return p, true
}

func ingredients(v any) []string {
	if s, ok := v.(string); ok {
		out := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return stringList(v)
}

// stepProducts collects the products of all steps, first occurrence wins.
func stepProducts(routines ...[]Step) []Product {
	out := []Product{}
	seen := make(map[string]bool)
	for _, r := range routines {
		for _, step := range r {
			for _, p := range step.Products {
				key := strings.ToLower(p.Name)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, p)
			}
		}
	}
	return out
}
