package host

import (
	"math"
	"slices"
	"strings"

	"github.com/itsmostafa/phunkie/internal/value"
)

const (
	sortRegular = 0
	sortNumeric = 1
	sortString  = 2
)

func (rt *Runtime) registerArrays() {
	arr := func(a *value.Array) (value.Value, error) { return value.Arr(a), nil }

	rt.def("count", "mixed value, int mode = 0", func(a ...value.Value) (value.Value, error) {
		switch a[0].Kind {
		case value.KindArray:
			if intArg(a, 1, 0) == 1 {
				return value.Int(countRecursive(a[0].AsArray())), nil
			}
			return value.Int(int64(a[0].AsArray().Len())), nil
		case value.KindObject:
			if rt.InstanceOf(a[0], "Countable") {
				m, err := rt.Method(a[0], "count", nil)
				if err != nil {
					return value.Null, err
				}
				return m.Call(nil)
			}
		}
		return value.Null, errorf("TypeError", "count(): Argument #1 ($value) must be of type Countable|array, %s given", value.DebugType(a[0]))
	})
	rt.alias("sizeof", "count")

	rt.def("array_map", "?callable callback, array array, array ...arrays", func(a ...value.Value) (value.Value, error) {
		return rt.arrayMap(a[0], a[1:])
	})
	rt.def("array_filter", "array array, ?callable callback, int mode = 0", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		fn, mode := argOr(a, 1, value.Null), intArg(a, 2, 0)
		for k, v := range a[0].AsArray().All() {
			keep := value.Truthy(v)
			if !fn.IsNull() {
				var args []value.Value
				switch mode {
				case filterUseKey:
					args = []value.Value{k.Value()}
				case filterUseBoth:
					args = []value.Value{v, k.Value()}
				default:
					args = []value.Value{v}
				}
				r, err := rt.call(fn, args...)
				if err != nil {
					return value.Null, err
				}
				keep = value.Truthy(r)
			}
			if keep {
				out.Put(k, v)
			}
		}
		return arr(out)
	})
	rt.def("array_reduce", "array array, callable callback, mixed initial = null", func(a ...value.Value) (value.Value, error) {
		acc := argOr(a, 2, value.Null)
		for _, v := range a[0].AsArray().All() {
			r, err := rt.call(a[1], acc, v)
			if err != nil {
				return value.Null, err
			}
			acc = r
		}
		return acc, nil
	})
	rt.def("array_walk", "&array array, callable callback, ?mixed arg", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_walk", ref, 1)
		if err != nil {
			return value.Null, err
		}
		for k, v := range src.All() {
			args := []value.Value{v, k.Value()}
			if len(a) > 2 {
				args = append(args, a[2])
			}
			if _, err := rt.call(a[1], args...); err != nil {
				return value.Null, err
			}
		}
		return value.Bool(true), nil
	})
	rt.def("array_keys", "array array, ?mixed filter_value, bool strict = false", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for k, v := range a[0].AsArray().All() {
			if len(a) > 1 && !matches(v, a[1], boolArg(a, 2)) {
				continue
			}
			out.Push(k.Value())
		}
		return arr(out)
	})
	rt.def("array_values", "array array", func(a ...value.Value) (value.Value, error) {
		return arr(value.NewList(a[0].AsArray().Values()...))
	})
	rt.def("array_merge", "array ...arrays", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, v := range a {
			for k, el := range v.AsArray().All() {
				if k.IsStr {
					out.Put(k, el)
				} else {
					out.Push(el)
				}
			}
		}
		return arr(out)
	})
	rt.def("array_merge_recursive", "array ...arrays", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, v := range a {
			out = mergeRecursive(out, v.AsArray())
		}
		return arr(out)
	})
	rt.def("array_replace", "array array, array ...replacements", func(a ...value.Value) (value.Value, error) {
		out := a[0].AsArray().Copy()
		for _, v := range a[1:] {
			for k, el := range v.AsArray().All() {
				out.Put(k, el)
			}
		}
		return arr(out)
	})
	rt.def("array_combine", "array keys, array values", func(a ...value.Value) (value.Value, error) {
		keys, vals := a[0].AsArray().Values(), a[1].AsArray().Values()
		if len(keys) != len(vals) {
			return value.Null, errorf("ValueError", "array_combine(): Argument #1 ($keys) and argument #2 ($values) must have the same number of elements")
		}
		out := value.NewArray()
		for i, k := range keys {
			key, err := value.ToKey(k)
			if err != nil {
				return value.Null, err
			}
			out.Put(key, vals[i])
		}
		return arr(out)
	})
	rt.def("array_flip", "array array", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for k, v := range a[0].AsArray().All() {
			if v.Kind != value.KindInt && v.Kind != value.KindString {
				continue
			}
			key, _ := value.ToKey(v)
			out.Put(key, k.Value())
		}
		return arr(out)
	})
	rt.def("array_fill_keys", "array keys, mixed value", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, k := range a[0].AsArray().All() {
			key, err := value.ToKey(k)
			if err != nil {
				return value.Null, err
			}
			out.Put(key, a[1])
		}
		return arr(out)
	})
	rt.def("array_slice", "array array, int offset, ?int length, bool preserve_keys = false", func(a ...value.Value) (value.Value, error) {
		return arr(arraySlice(a[0].AsArray(), a[1].AsInt(), argOr(a, 2, value.Null), boolArg(a, 3)))
	})
	rt.def("array_splice", "&array array, int offset, ?int length, mixed replacement = []", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_splice", ref, 1)
		if err != nil {
			return value.Null, err
		}
		start, end := sliceBounds(src.Len(), a[1].AsInt(), argOr(a, 2, value.Null))
		var repl []value.Value
		if r := argOr(a, 3, value.Null); r.Kind == value.KindArray {
			repl = r.AsArray().Values()
		} else if !r.IsNull() {
			repl = []value.Value{r}
		}
		removed, rest := value.NewArray(), value.NewArray()
		for i := 0; i < src.Len(); i++ {
			if i == start {
				for _, v := range repl {
					rest.Push(v)
				}
			}
			k, v := src.At(i)
			switch {
			case i >= start && i < end:
				removed.Push(v)
			case k.IsStr:
				rest.Put(k, v)
			default:
				rest.Push(v)
			}
		}
		if start >= src.Len() {
			for _, v := range repl {
				rest.Push(v)
			}
		}
		ref.Value = value.Arr(rest)
		return arr(removed)
	})
	rt.def("array_sum", "array array", func(a ...value.Value) (value.Value, error) {
		acc := value.Int(0)
		for _, v := range a[0].AsArray().All() {
			n, _ := value.ToNumber(v)
			r, err := value.Arith("+", acc, n)
			if err != nil {
				return value.Null, err
			}
			acc = r
		}
		return acc, nil
	})
	rt.def("array_product", "array array", func(a ...value.Value) (value.Value, error) {
		acc := value.Int(1)
		for _, v := range a[0].AsArray().All() {
			n, _ := value.ToNumber(v)
			r, err := value.Arith("*", acc, n)
			if err != nil {
				return value.Null, err
			}
			acc = r
		}
		return acc, nil
	})
	rt.def("array_reverse", "array array, bool preserve_keys = false", func(a ...value.Value) (value.Value, error) {
		src, out := a[0].AsArray(), value.NewArray()
		for i := src.Len() - 1; i >= 0; i-- {
			k, v := src.At(i)
			if k.IsStr || boolArg(a, 1) {
				out.Put(k, v)
			} else {
				out.Push(v)
			}
		}
		return arr(out)
	})
	rt.def("array_unique", "array array", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		var seen []value.Value
		for k, v := range a[0].AsArray().All() {
			if slices.ContainsFunc(seen, func(s value.Value) bool { return value.Stringify(s) == value.Stringify(v) }) {
				continue
			}
			seen = append(seen, v)
			out.Put(k, v)
		}
		return arr(out)
	})
	rt.def("array_count_values", "array array", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, v := range a[0].AsArray().All() {
			key, err := value.ToKey(v)
			if err != nil {
				continue
			}
			n, _ := out.Get(key)
			out.Put(key, value.Int(n.AsInt()+1))
		}
		return arr(out)
	})
	rt.def("array_search", "mixed needle, array haystack, bool strict = false", func(a ...value.Value) (value.Value, error) {
		for k, v := range a[1].AsArray().All() {
			if matches(v, a[0], boolArg(a, 2)) {
				return k.Value(), nil
			}
		}
		return value.Bool(false), nil
	})
	rt.def("in_array", "mixed needle, array haystack, bool strict = false", func(a ...value.Value) (value.Value, error) {
		for _, v := range a[1].AsArray().All() {
			if matches(v, a[0], boolArg(a, 2)) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	rt.def("array_key_exists", "mixed key, array array", func(a ...value.Value) (value.Value, error) {
		key, err := value.ToKey(a[0])
		if err != nil {
			return value.Null, err
		}
		return value.Bool(a[1].AsArray().Has(key)), nil
	})
	rt.alias("key_exists", "array_key_exists")
	rt.def("array_key_first", "array array", func(a ...value.Value) (value.Value, error) {
		if a[0].AsArray().Len() == 0 {
			return value.Null, nil
		}
		k, _ := a[0].AsArray().At(0)
		return k.Value(), nil
	})
	rt.def("array_key_last", "array array", func(a ...value.Value) (value.Value, error) {
		src := a[0].AsArray()
		if src.Len() == 0 {
			return value.Null, nil
		}
		k, _ := src.At(src.Len() - 1)
		return k.Value(), nil
	})
	rt.def("array_is_list", "array array", func(a ...value.Value) (value.Value, error) {
		return value.Bool(a[0].AsArray().IsList()), nil
	})
	rt.def("array_push", "&array array, mixed ...values", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_push", ref, 1)
		if err != nil {
			return value.Null, err
		}
		out := src.Copy()
		for _, v := range a[1:] {
			out.Push(v)
		}
		ref.Value = value.Arr(out)
		return value.Int(int64(out.Len())), nil
	})
	rt.def("array_pop", "&array array", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_pop", ref, 1)
		if err != nil || src.Len() == 0 {
			return value.Null, err
		}
		k, v := src.At(src.Len() - 1)
		out := src.Delete(k)
		if !k.IsStr {
			out = resetNext(out)
		}
		ref.Value = value.Arr(out)
		return v, nil
	})
	rt.def("array_shift", "&array array", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_shift", ref, 1)
		if err != nil || src.Len() == 0 {
			return value.Null, err
		}
		k, v := src.At(0)
		ref.Value = value.Arr(src.Delete(k).Reindex())
		return v, nil
	})
	rt.def("array_unshift", "&array array, mixed ...values", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("array_unshift", ref, 1)
		if err != nil {
			return value.Null, err
		}
		out := value.NewList(a[1:]...)
		for k, v := range src.All() {
			if k.IsStr {
				out.Put(k, v)
			} else {
				out.Push(v)
			}
		}
		ref.Value = value.Arr(out)
		return value.Int(int64(out.Len())), nil
	})
	rt.def("range", "mixed start, mixed end, int|float step = 1", func(a ...value.Value) (value.Value, error) {
		return rangeOf(a[0], a[1], argOr(a, 2, value.Int(1)))
	})
	rt.def("array_fill", "int start_index, int count, mixed value", func(a ...value.Value) (value.Value, error) {
		n := a[1].AsInt()
		if n < 0 {
			return value.Null, errorf("ValueError", "array_fill(): Argument #2 ($count) must be greater than or equal to 0")
		}
		out := value.NewArray()
		for i := int64(0); i < n; i++ {
			out.Put(value.IntKey(a[0].AsInt()+i), a[2])
		}
		return arr(out)
	})
	rt.def("array_pad", "array array, int length, mixed value", func(a ...value.Value) (value.Value, error) {
		src := a[0].AsArray()
		n := int(a[1].AsInt())
		missing := max(abs(n)-src.Len(), 0)
		fill := make([]value.Value, missing)
		for i := range fill {
			fill[i] = a[2]
		}
		if n < 0 {
			return arr(value.NewList(append(fill, src.Values()...)...))
		}
		out := src.Reindex()
		for _, v := range fill {
			out.Push(v)
		}
		return arr(out)
	})
	rt.def("array_chunk", "array array, int length, bool preserve_keys = false", func(a ...value.Value) (value.Value, error) {
		size := int(a[1].AsInt())
		if size < 1 {
			return value.Null, errorf("ValueError", "array_chunk(): Argument #2 ($length) must be greater than 0")
		}
		out, chunk := value.NewArray(), value.NewArray()
		for k, v := range a[0].AsArray().All() {
			if boolArg(a, 2) {
				chunk.Put(k, v)
			} else {
				chunk.Push(v)
			}
			if chunk.Len() == size {
				out.Push(value.Arr(chunk))
				chunk = value.NewArray()
			}
		}
		if chunk.Len() > 0 {
			out.Push(value.Arr(chunk))
		}
		return arr(out)
	})
	rt.def("array_column", "array array, mixed column_key, mixed index_key = null", func(a ...value.Value) (value.Value, error) {
		out := value.NewArray()
		for _, row := range a[0].AsArray().All() {
			v, ok := rt.column(row, a[1])
			if !ok {
				continue
			}
			idx := argOr(a, 2, value.Null)
			if idx.IsNull() {
				out.Push(v)
				continue
			}
			if kv, ok := rt.column(row, idx); ok {
				if key, err := value.ToKey(kv); err == nil {
					out.Put(key, v)
					continue
				}
			}
			out.Push(v)
		}
		return arr(out)
	})
	rt.def("array_diff", "array array, array ...arrays", func(a ...value.Value) (value.Value, error) {
		return arr(setFilter(a, false, func(x value.Value, other *value.Array) bool {
			return slices.ContainsFunc(other.Values(), func(y value.Value) bool { return value.Stringify(x) == value.Stringify(y) })
		}))
	})
	rt.def("array_intersect", "array array, array ...arrays", func(a ...value.Value) (value.Value, error) {
		return arr(setFilter(a, true, func(x value.Value, other *value.Array) bool {
			return slices.ContainsFunc(other.Values(), func(y value.Value) bool { return value.Stringify(x) == value.Stringify(y) })
		}))
	})
	rt.def("array_diff_key", "array array, array ...arrays", func(a ...value.Value) (value.Value, error) {
		return arr(keyFilter(a, false))
	})
	rt.def("array_intersect_key", "array array, array ...arrays", func(a ...value.Value) (value.Value, error) {
		return arr(keyFilter(a, true))
	})
	rt.def("array_rand", "array array, int num = 1", func(a ...value.Value) (value.Value, error) {
		src := a[0].AsArray()
		if src.Len() == 0 {
			return value.Null, errorf("ValueError", "array_rand(): Argument #1 ($array) cannot be empty")
		}
		n := int(intArg(a, 1, 1))
		if n == 1 {
			k, _ := src.At(rng.IntN(src.Len()))
			return k.Value(), nil
		}
		idx := rng.Perm(src.Len())[:min(n, src.Len())]
		slices.Sort(idx)
		out := value.NewArray()
		for _, i := range idx {
			k, _ := src.At(i)
			out.Push(k.Value())
		}
		return arr(out)
	})
	rt.def("shuffle", "&array array", func(a ...value.Value) (value.Value, error) {
		ref := a[0].AsRef()
		src, err := refArray("shuffle", ref, 1)
		if err != nil {
			return value.Null, err
		}
		vals := src.Values()
		rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
		ref.Value = value.List(vals...)
		return ref.Value, nil
	})
	rt.def("array_any", "array array, callable callback", func(a ...value.Value) (value.Value, error) {
		for k, v := range a[0].AsArray().All() {
			r, err := rt.call(a[1], v, k.Value())
			if err != nil || value.Truthy(r) {
				return value.Bool(err == nil), err
			}
		}
		return value.Bool(false), nil
	})
	rt.def("array_all", "array array, callable callback", func(a ...value.Value) (value.Value, error) {
		for k, v := range a[0].AsArray().All() {
			r, err := rt.call(a[1], v, k.Value())
			if err != nil {
				return value.Null, err
			}
			if !value.Truthy(r) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	})
	rt.def("array_find", "array array, callable callback", func(a ...value.Value) (value.Value, error) {
		for k, v := range a[0].AsArray().All() {
			r, err := rt.call(a[1], v, k.Value())
			if err != nil {
				return value.Null, err
			}
			if value.Truthy(r) {
				return v, nil
			}
		}
		return value.Null, nil
	})
	rt.def("reset", "array array", func(a ...value.Value) (value.Value, error) {
		if a[0].AsArray().Len() == 0 {
			return value.Bool(false), nil
		}
		_, v := a[0].AsArray().At(0)
		return v, nil
	})
	rt.alias("current", "reset")
	rt.def("end", "array array", func(a ...value.Value) (value.Value, error) {
		src := a[0].AsArray()
		if src.Len() == 0 {
			return value.Bool(false), nil
		}
		_, v := src.At(src.Len() - 1)
		return v, nil
	})
	rt.def("iterator_to_array", "mixed iterator, bool preserve_keys = true", func(a ...value.Value) (value.Value, error) {
		out, err := rt.ToArray(a[0], len(a) < 2 || value.Truthy(a[1]))
		if err != nil {
			return value.Null, err
		}
		return arr(out)
	})
	rt.def("iterator_count", "mixed iterator", func(a ...value.Value) (value.Value, error) {
		out, err := rt.ToArray(a[0], false)
		if err != nil {
			return value.Null, err
		}
		return value.Int(int64(out.Len())), nil
	})

	rt.registerSorts()

	// compact, extract and get_defined_vars read the caller's variables;
	// the evaluator intercepts calls to them
	for _, name := range []string{"compact", "extract", "get_defined_vars", "func_get_args"} {
		rt.def(name, "mixed ...values", func(...value.Value) (value.Value, error) {
			return value.Null, errorf("Error", "Cannot call %s() dynamically", name)
		})
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func countRecursive(a *value.Array) int64 {
	n := int64(a.Len())
	for _, v := range a.All() {
		if v.Kind == value.KindArray {
			n += countRecursive(v.AsArray())
		}
	}
	return n
}

func refArray(fn string, ref *value.Ref, pos int) (*value.Array, error) {
	if ref.Value.Kind != value.KindArray {
		return nil, errorf("TypeError", "%s(): Argument #%d ($array) must be of type array, %s given", fn, pos, value.DebugType(ref.Value))
	}
	return ref.Value.AsArray(), nil
}

// resetNext rebuilds a so the next append index follows the last int key
func resetNext(a *value.Array) *value.Array {
	out := value.NewArray()
	for k, v := range a.All() {
		out.Put(k, v)
	}
	return out
}

func matches(v, needle value.Value, strict bool) bool {
	if strict {
		return value.Identical(v, needle)
	}
	return value.LooseEquals(v, needle)
}

func (rt *Runtime) arrayMap(fn value.Value, arrays []value.Value) (value.Value, error) {
	if len(arrays) == 1 {
		out := value.NewArray()
		src := arrays[0].AsArray()
		for k, v := range src.All() {
			if fn.IsNull() {
				out.Put(k, v)
				continue
			}
			r, err := rt.call(fn, v)
			if err != nil {
				return value.Null, err
			}
			out.Put(k, r)
		}
		return value.Arr(out), nil
	}
	longest := 0
	lists := make([][]value.Value, len(arrays))
	for i, a := range arrays {
		lists[i] = a.AsArray().Values()
		longest = max(longest, len(lists[i]))
	}
	out := value.NewArray()
	for i := 0; i < longest; i++ {
		args := make([]value.Value, len(lists))
		for j, l := range lists {
			args[j] = value.Null
			if i < len(l) {
				args[j] = l[i]
			}
		}
		if fn.IsNull() {
			out.Push(value.List(args...))
			continue
		}
		r, err := rt.call(fn, args...)
		if err != nil {
			return value.Null, err
		}
		out.Push(r)
	}
	return value.Arr(out), nil
}

func mergeRecursive(dst, src *value.Array) *value.Array {
	out := dst.Copy()
	for k, v := range src.All() {
		if !k.IsStr {
			out.Push(v)
			continue
		}
		existing, ok := out.Get(k)
		switch {
		case !ok:
			out.Put(k, v)
		case existing.Kind == value.KindArray && v.Kind == value.KindArray:
			out.Put(k, value.Arr(mergeRecursive(existing.AsArray(), v.AsArray())))
		default:
			merged := value.ToArray(existing).Copy()
			if v.Kind == value.KindArray {
				merged = mergeRecursive(merged, v.AsArray())
			} else {
				merged.Push(v)
			}
			out.Put(k, value.Arr(merged))
		}
	}
	return out
}

func arraySlice(src *value.Array, offset int64, length value.Value, preserve bool) *value.Array {
	start, end := sliceBounds(src.Len(), offset, length)
	out := value.NewArray()
	for i := start; i < end; i++ {
		k, v := src.At(i)
		if k.IsStr || preserve {
			out.Put(k, v)
		} else {
			out.Push(v)
		}
	}
	return out
}

func setFilter(args []value.Value, keepPresent bool, present func(value.Value, *value.Array) bool) *value.Array {
	out := value.NewArray()
	for k, v := range args[0].AsArray().All() {
		keep := true
		for _, other := range args[1:] {
			if present(v, other.AsArray()) != keepPresent {
				keep = false
				break
			}
		}
		if keep {
			out.Put(k, v)
		}
	}
	return out
}

func keyFilter(args []value.Value, keepPresent bool) *value.Array {
	out := value.NewArray()
	for k, v := range args[0].AsArray().All() {
		keep := true
		for _, other := range args[1:] {
			if other.AsArray().Has(k) != keepPresent {
				keep = false
				break
			}
		}
		if keep {
			out.Put(k, v)
		}
	}
	return out
}

func (rt *Runtime) column(row, key value.Value) (value.Value, bool) {
	switch row.Kind {
	case value.KindArray:
		k, err := value.ToKey(key)
		if err != nil {
			return value.Null, false
		}
		return row.AsArray().Get(k)
	case value.KindObject:
		name := value.Stringify(key)
		if !rt.HasProperty(row, name, nil) {
			return value.Null, false
		}
		v, err := rt.GetProperty(row, name, nil)
		return v, err == nil
	}
	return value.Null, false
}

func rangeOf(start, end, step value.Value) (value.Value, error) {
	out := value.NewArray()
	isChar := func(v value.Value) bool { return v.Kind == value.KindString && len(v.AsString()) == 1 && !value.IsNumeric(v) }
	if isChar(start) && isChar(end) {
		lo, hi := int(start.AsString()[0]), int(end.AsString()[0])
		n := int(math.Abs(float64(value.ToInt(step))))
		if n == 0 {
			n = 1
		}
		if lo <= hi {
			for c := lo; c <= hi; c += n {
				out.Push(value.Str(string(rune(c))))
			}
		} else {
			for c := lo; c >= hi; c -= n {
				out.Push(value.Str(string(rune(c))))
			}
		}
		return value.Arr(out), nil
	}
	s, _ := value.ToNumber(start)
	e, _ := value.ToNumber(end)
	st, _ := value.ToNumber(step)
	if value.ToFloat(st) == 0 {
		return value.Null, errorf("ValueError", "range(): Argument #3 ($step) cannot be 0")
	}
	if s.Kind == value.KindInt && e.Kind == value.KindInt && (st.Kind == value.KindInt || value.ToFloat(st) == math.Trunc(value.ToFloat(st))) {
		lo, hi, n := s.AsInt(), e.AsInt(), value.ToInt(st)
		if n < 0 {
			n = -n
		}
		if (hi-lo)/n > 10_000_000 || (lo-hi)/n > 10_000_000 {
			return value.Null, errorf("ValueError", "The supplied range exceeds the maximum array size")
		}
		if lo <= hi {
			for i := lo; i <= hi; i += n {
				out.Push(value.Int(i))
			}
		} else {
			for i := lo; i >= hi; i -= n {
				out.Push(value.Int(i))
			}
		}
		return value.Arr(out), nil
	}
	lo, hi, n := value.ToFloat(s), value.ToFloat(e), math.Abs(value.ToFloat(st))
	count := int(math.Floor(math.Abs(hi-lo)/n + 1e-9))
	if count > 10_000_000 {
		return value.Null, errorf("ValueError", "The supplied range exceeds the maximum array size")
	}
	dir := 1.0
	if hi < lo {
		dir = -1
	}
	for i := 0; i <= count; i++ {
		out.Push(value.Float(lo + dir*float64(i)*n))
	}
	return value.Arr(out), nil
}

func (rt *Runtime) registerSorts() {
	type sorter struct {
		name    string
		byKey   bool
		reverse bool
		keep    bool
		user    bool
	}
	for _, s := range []sorter{
		{name: "sort"},
		{name: "rsort", reverse: true},
		{name: "usort", user: true},
		{name: "asort", keep: true},
		{name: "arsort", keep: true, reverse: true},
		{name: "uasort", keep: true, user: true},
		{name: "ksort", byKey: true, keep: true},
		{name: "krsort", byKey: true, keep: true, reverse: true},
		{name: "uksort", byKey: true, keep: true, user: true},
	} {
		sig := "&array array, int flags = 0"
		if s.user {
			sig = "&array array, callable callback"
		}
		rt.def(s.name, sig, func(a ...value.Value) (value.Value, error) {
			ref := a[0].AsRef()
			src, err := refArray(s.name, ref, 1)
			if err != nil {
				return value.Null, err
			}
			type entry struct {
				k value.Key
				v value.Value
			}
			entries := make([]entry, 0, src.Len())
			for k, v := range src.All() {
				entries = append(entries, entry{k, v})
			}
			var cmpErr error
			slices.SortStableFunc(entries, func(x, y entry) int {
				l, r := x.v, y.v
				if s.byKey {
					l, r = x.k.Value(), y.k.Value()
				}
				if s.user {
					res, err := rt.call(a[1], l, r)
					if err != nil && cmpErr == nil {
						cmpErr = err
					}
					n, _ := value.ToNumber(res)
					return sign(value.ToFloat(n))
				}
				c := compareFlag(l, r, intArg(a, 1, sortRegular))
				if s.reverse {
					return -c
				}
				return c
			})
			if cmpErr != nil {
				return value.Null, cmpErr
			}
			out := value.NewArray()
			for _, e := range entries {
				if s.keep {
					out.Put(e.k, e.v)
				} else {
					out.Push(e.v)
				}
			}
			ref.Value = value.Arr(out)
			return ref.Value, nil
		})
	}
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}

func compareFlag(a, b value.Value, flag int64) int {
	switch flag &^ 8 {
	case sortNumeric:
		return sign(value.ToFloat(a) - value.ToFloat(b))
	case sortString:
		l, r := value.Stringify(a), value.Stringify(b)
		if flag&8 != 0 {
			l, r = strings.ToLower(l), strings.ToLower(r)
		}
		return strings.Compare(l, r)
	}
	return value.Compare(a, b)
}
