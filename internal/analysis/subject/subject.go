package subject

import (
	"regexp"
	"strings"
)

// Category 表示问题所属的学科标签，决定由哪位教授来回答。
type Category string

const (
	DSA         Category = "dsa"
	CareerSkill Category = "careerskill"
	Maths       Category = "maths"
	OOPS        Category = "oops"
	Default     Category = "default"
)

// routeOrder 是标签匹配的固定优先级，未命中的一律落到 Default。
var routeOrder = []Category{DSA, Maths, CareerSkill, OOPS}

// All returns every category, default last.
func All() []Category {
	return []Category{DSA, CareerSkill, Maths, OOPS, Default}
}

// Normalize lowercases and trims raw model output.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Route 将分类器的原始输出映射为 Category。按优先级做子串匹配，无法识别时回退到 Default。
func Route(label string) Category {
	normalized := Normalize(label)
	for _, category := range routeOrder {
		if strings.Contains(normalized, string(category)) {
			return category
		}
	}
	return Default
}

// Parse accepts only an exact label.
func Parse(raw string) (Category, bool) {
	switch Category(Normalize(raw)) {
	case DSA:
		return DSA, true
	case CareerSkill:
		return CareerSkill, true
	case Maths:
		return Maths, true
	case OOPS:
		return OOPS, true
	case Default:
		return Default, true
	default:
		return "", false
	}
}

// Decision 给出关键词分类结果。
type Decision struct {
	Category Category
	Score    int
	Greeting bool
}

var keywordBuckets = map[Category][]string{
	DSA: {
		"dsa", "data structure", "data structures", "linked list", "binary search", "binary tree",
		"search tree", "bst", "stack", "queue", "heap", "hash table", "hashmap", "hash map", "array",
		"trie", "graph traversal", "bfs", "dfs", "sorting", "quicksort", "merge sort", "big o",
		"time complexity", "dynamic programming", "recursion", "algorithm", "algorithms",
	},
	Maths: {
		"math", "maths", "mathematics", "algebra", "set theory", "graph theory", "combinatorics",
		"discrete", "proof", "theorem", "lemma", "permutation", "permutations", "combination",
		"combinations", "probability", "calculus", "matrix", "equation", "integral", "derivative",
		"induction", "pigeonhole", "relation", "lattice",
	},
	CareerSkill: {
		"career", "careers", "resume", "interview", "grammar", "english", "literature", "vocabulary",
		"logical reasoning", "reasoning", "aptitude", "communication", "synonym", "antonym",
		"essay", "tense", "tenses", "public speaking", "soft skills",
	},
	OOPS: {
		"oop", "oops", "object-oriented", "object oriented", "inheritance", "polymorphism",
		"encapsulation", "abstraction", "class", "classes", "constructor", "destructor",
		"method overriding", "overloading", "virtual function", "interface",
	},
}

var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "namaste",
	"my name is", "i am", "i'm", "this is", "nice to meet you", "how are you", "thanks", "thank you",
}

var keywordPatterns = compileBuckets()

func compileBuckets() map[Category][]*regexp.Regexp {
	patterns := make(map[Category][]*regexp.Regexp, len(keywordBuckets))
	for category, words := range keywordBuckets {
		for _, word := range words {
			patterns[category] = append(patterns[category], wordPattern(word))
		}
	}
	return patterns
}

func wordPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(phrase) + `($|[^a-z0-9])`)
}

// Analyze 使用关键词规则对问题分类，不调用模型。
// 没有任何学科关键词的输入归为 Default。以问候或自我介绍开头且最高得分不超过 1 的输入也归为 Default，
// 顺带提到的单个关键词不足以切换教授。多个学科同时命中时取得分最高者，平分时按 Route 的优先级。
func Analyze(text string) Decision {
	normalized := Normalize(text)
	if normalized == "" {
		return Decision{Category: Default}
	}

	scores := make(map[Category]int, len(keywordPatterns))
	for category, patterns := range keywordPatterns {
		for _, pattern := range patterns {
			if pattern.MatchString(normalized) {
				scores[category]++
			}
		}
	}

	best := Decision{Category: Default, Greeting: isGreeting(normalized)}
	for _, category := range routeOrder {
		if scores[category] > best.Score {
			best.Category = category
			best.Score = scores[category]
		}
	}
	if best.Greeting && best.Score <= 1 {
		best.Category = Default
	}
	return best
}

func isGreeting(normalized string) bool {
	for _, phrase := range greetingPhrases {
		if strings.HasPrefix(normalized, phrase) {
			rest := normalized[len(phrase):]
			if rest == "" || !isWordByte(rest[0]) {
				return true
			}
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
