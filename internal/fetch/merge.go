package fetch

import (
	"errors"
	"fmt"
	"log/slog"
)

// Strategy selects the policy for collapsing multiple fetched documents into
// one payload before parsing.
type Strategy string

const (
	// StrategyFirst keeps only document 0.
	StrategyFirst Strategy = "first"
	// StrategyJSONArray wraps all documents in a JSON array.
	StrategyJSONArray Strategy = "json-array"
	// StrategySwagger and StrategyOpenAPI deep-merge documents as
	// OpenAPI-shaped payloads; later documents win on conflicts.
	StrategySwagger Strategy = "swagger"
	StrategyOpenAPI Strategy = "openapi"
	// StrategyAuto picks swagger when every document is OpenAPI-shaped,
	// first for a single document, json-array otherwise.
	StrategyAuto Strategy = "auto"
)

// MergeFunc is a caller-supplied total override of the merge policy.
type MergeFunc func(docs []interface{}) (interface{}, error)

// ErrNoDocuments is returned when merge is asked to collapse an empty set.
var ErrNoDocuments = errors.New("no documents to merge")

// Merger collapses multiple raw documents into one payload.
type Merger struct {
	logger *slog.Logger
}

func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{logger: logger.With("component", "merger")}
}

// Merge applies the given strategy. It fails fast on an empty document set,
// and when swagger/openapi is requested explicitly but not every document
// qualifies.
func (m *Merger) Merge(docs []interface{}, strategy Strategy) (interface{}, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	switch strategy {
	case StrategyFirst:
		return docs[0], nil

	case StrategyJSONArray:
		return append([]interface{}{}, docs...), nil

	case StrategySwagger, StrategyOpenAPI:
		for i, doc := range docs {
			if !looksOpenAPIShaped(doc) {
				return nil, fmt.Errorf("merge strategy %q requires OpenAPI-shaped documents, document %d is not", strategy, i)
			}
		}
		return m.mergeOpenAPI(docs), nil

	case StrategyAuto, "":
		allShaped := true
		for _, doc := range docs {
			if !looksOpenAPIShaped(doc) {
				allShaped = false
				break
			}
		}
		if allShaped {
			return m.mergeOpenAPI(docs), nil
		}
		if len(docs) == 1 {
			return docs[0], nil
		}
		return append([]interface{}{}, docs...), nil

	default:
		return nil, fmt.Errorf("unsupported merge strategy %q", strategy)
	}
}

// looksOpenAPIShaped is the minimal duck test the auto strategy relies on.
func looksOpenAPIShaped(doc interface{}) bool {
	m, ok := doc.(map[string]interface{})
	if !ok {
		return false
	}
	_, hasPaths := m["paths"]
	return hasPaths
}

// mergeOpenAPI deep-merges OpenAPI-shaped documents. Paths are shallow-merged
// key by key with later documents' operations overriding same-path,
// same-method entries (logged, not fatal); components/definitions sections
// merge one level deep with non-object values replaced; tags and servers are
// deduplicated by name/url with later entries overriding matching earlier
// ones.
func (m *Merger) mergeOpenAPI(docs []interface{}) interface{} {
	result := copyMap(docs[0].(map[string]interface{}))

	for _, raw := range docs[1:] {
		doc := raw.(map[string]interface{})
		for key, value := range doc {
			switch key {
			case "paths":
				result["paths"] = m.mergePaths(asMap(result["paths"]), asMap(value))
			case "components", "definitions":
				result[key] = mergeSections(asMap(result[key]), asMap(value))
			case "tags":
				result["tags"] = dedupeByKey(asSlice(result["tags"]), asSlice(value), "name")
			case "servers":
				result["servers"] = dedupeByKey(asSlice(result["servers"]), asSlice(value), "url")
			default:
				if dst, ok := result[key].(map[string]interface{}); ok {
					if src, ok := value.(map[string]interface{}); ok {
						result[key] = mergeOneLevel(dst, src)
						continue
					}
				}
				result[key] = value
			}
		}
	}
	return result
}

func (m *Merger) mergePaths(dst, src map[string]interface{}) map[string]interface{} {
	out := copyMap(dst)
	for path, rawItem := range src {
		srcItem, ok := rawItem.(map[string]interface{})
		if !ok {
			out[path] = rawItem
			continue
		}
		dstItem, ok := out[path].(map[string]interface{})
		if !ok {
			out[path] = rawItem
			continue
		}
		merged := copyMap(dstItem)
		for method, op := range srcItem {
			if _, exists := merged[method]; exists {
				m.logger.Warn("Later document overrides operation at same path and method",
					slog.String("path", path),
					slog.String("method", method))
			}
			merged[method] = op
		}
		out[path] = merged
	}
	return out
}

// mergeSections merges component/definition sections by top-level section
// key; entries within a section merge one level deep.
func mergeSections(dst, src map[string]interface{}) map[string]interface{} {
	out := copyMap(dst)
	for section, rawValue := range src {
		srcSection, ok := rawValue.(map[string]interface{})
		if !ok {
			out[section] = rawValue
			continue
		}
		dstSection, ok := out[section].(map[string]interface{})
		if !ok {
			out[section] = rawValue
			continue
		}
		out[section] = mergeOneLevel(dstSection, srcSection)
	}
	return out
}

// mergeOneLevel merges src into dst: when both sides hold objects for a key
// their immediate keys merge (later wins below that), otherwise the src
// value replaces.
func mergeOneLevel(dst, src map[string]interface{}) map[string]interface{} {
	out := copyMap(dst)
	for key, value := range src {
		srcObj, srcIsObj := value.(map[string]interface{})
		dstObj, dstIsObj := out[key].(map[string]interface{})
		if srcIsObj && dstIsObj {
			merged := copyMap(dstObj)
			for k, v := range srcObj {
				merged[k] = v
			}
			out[key] = merged
			continue
		}
		out[key] = value
	}
	return out
}

// dedupeByKey appends src entries to dst, replacing (in place) any earlier
// entry whose identifying field matches.
func dedupeByKey(dst, src []interface{}, field string) []interface{} {
	out := append([]interface{}{}, dst...)
	for _, entry := range src {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			out = append(out, entry)
			continue
		}
		id, _ := entryMap[field].(string)
		replaced := false
		if id != "" {
			for i, existing := range out {
				existingMap, ok := existing.(map[string]interface{})
				if !ok {
					continue
				}
				if existingID, _ := existingMap[field].(string); existingID == id {
					out[i] = entry
					replaced = true
					break
				}
			}
		}
		if !replaced {
			out = append(out, entry)
		}
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}
