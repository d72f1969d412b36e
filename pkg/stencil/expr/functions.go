package expr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Function is a callable available to template expressions.
type Function interface {
	Call(args ...any) (any, error)
	Name() string
	// MinArgs and MaxArgs bound the argument count; MaxArgs < 0 means unlimited.
	MinArgs() int
	MaxArgs() int
}

type simpleFunction struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...any) (any, error)
}

// NewFunction wraps handler as a Function with argument-count checking.
func NewFunction(name string, minArgs, maxArgs int, handler func(args ...any) (any, error)) Function {
	return &simpleFunction{name: name, minArgs: minArgs, maxArgs: maxArgs, handler: handler}
}

func (f *simpleFunction) Call(args ...any) (any, error) {
	if len(args) < f.minArgs {
		return nil, fmt.Errorf("function %s requires at least %d arguments, got %d", f.name, f.minArgs, len(args))
	}
	if f.maxArgs >= 0 && len(args) > f.maxArgs {
		return nil, fmt.Errorf("function %s accepts at most %d arguments, got %d", f.name, f.maxArgs, len(args))
	}
	return f.handler(args...)
}

func (f *simpleFunction) Name() string { return f.name }
func (f *simpleFunction) MinArgs() int { return f.minArgs }
func (f *simpleFunction) MaxArgs() int { return f.maxArgs }

// Registry is a concurrency-safe set of functions keyed by name.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRegistry returns a registry preloaded with the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{functions: make(map[string]Function)}
	for _, fn := range builtins() {
		r.functions[fn.Name()] = fn
	}
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(fn Function) error {
	if fn == nil || fn.Name() == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[fn.Name()] = fn
	return nil
}

// Get looks up a function.
func (r *Registry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtins() []Function {
	return []Function{
		NewFunction("uppercase", 1, 1, func(args ...any) (any, error) {
			return strings.ToUpper(FormatValue(args[0])), nil
		}),
		NewFunction("lowercase", 1, 1, func(args ...any) (any, error) {
			return strings.ToLower(FormatValue(args[0])), nil
		}),
		NewFunction("titlecase", 1, 1, func(args ...any) (any, error) {
			// A Caser is not safe for concurrent use.
			return cases.Title(language.Und).String(FormatValue(args[0])), nil
		}),
		NewFunction("str", 1, 1, func(args ...any) (any, error) {
			return FormatValue(args[0]), nil
		}),
		NewFunction("length", 1, 1, func(args ...any) (any, error) {
			switch x := args[0].(type) {
			case string:
				return len([]rune(x)), nil
			case Range:
				return x.Len(), nil
			}
			items, err := ToSlice(args[0])
			if err != nil {
				return nil, err
			}
			return len(items), nil
		}),
		NewFunction("join", 1, 2, func(args ...any) (any, error) {
			items, err := ToSlice(args[0])
			if err != nil {
				return nil, err
			}
			sep := ""
			if len(args) == 2 {
				sep = FormatValue(args[1])
			}
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = FormatValue(item)
			}
			return strings.Join(parts, sep), nil
		}),
		NewFunction("range", 1, 3, rangeNumbers),
		NewFunction("sum", 1, 1, func(args ...any) (any, error) {
			items, err := ToSlice(args[0])
			if err != nil {
				return nil, err
			}
			var total any = 0
			for _, item := range items {
				if total, err = arithmetic(total, "+", item); err != nil {
					return nil, err
				}
			}
			return total, nil
		}),
		NewFunction("contains", 2, 2, func(args ...any) (any, error) {
			if s, ok := args[1].(string); ok {
				return strings.Contains(s, FormatValue(args[0])), nil
			}
			items, err := ToSlice(args[1])
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if equal(item, args[0]) {
					return true, nil
				}
			}
			return false, nil
		}),
		NewFunction("format", 1, -1, func(args ...any) (any, error) {
			pattern, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("format pattern must be a string, got %T", args[0])
			}
			return fmt.Sprintf(pattern, args[1:]...), nil
		}),
		NewFunction("default", 2, 2, func(args ...any) (any, error) {
			if IsTruthy(args[0]) {
				return args[0], nil
			}
			return args[1], nil
		}),
	}
}

// rangeNumbers implements range(end), range(start, end) and range(start, end, step).
// The result is a lazy Range.
func rangeNumbers(args ...any) (any, error) {
	bounds := make([]int, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, fmt.Errorf("range argument %d must be an integer, got %T", i, a)
		}
		bounds[i] = n
	}
	start, end, step := 0, 0, 1
	switch len(bounds) {
	case 1:
		end = bounds[0]
	case 2:
		start, end = bounds[0], bounds[1]
	case 3:
		start, end, step = bounds[0], bounds[1], bounds[2]
	}
	if step == 0 {
		return nil, fmt.Errorf("range step cannot be zero")
	}
	return Range{Start: start, End: end, Step: step}, nil
}
