package host

import (
	"fmt"
	"io"

	"github.com/itsmostafa/phunkie/internal/value"
)

func (rt *Runtime) registerOutput() {
	rt.def("var_dump", "mixed value, mixed ...values", func(a ...value.Value) (value.Value, error) {
		for _, v := range a {
			io.WriteString(rt.out, value.Dump(v))
		}
		return value.Null, nil
	})
	rt.def("print_r", "mixed value, bool return = false", func(a ...value.Value) (value.Value, error) {
		s := value.PrintR(a[0])
		if boolArg(a, 1) {
			return value.Str(s), nil
		}
		io.WriteString(rt.out, s)
		return value.Bool(true), nil
	})
	rt.def("var_export", "mixed value, bool return = false", func(a ...value.Value) (value.Value, error) {
		s := value.Export(a[0])
		if boolArg(a, 1) {
			return value.Str(s), nil
		}
		io.WriteString(rt.out, s)
		return value.Null, nil
	})
	rt.def("printf", "string format, mixed ...values", func(a ...value.Value) (value.Value, error) {
		s, err := sprintf(a[0].AsString(), a[1:])
		if err != nil {
			return value.Null, err
		}
		n, _ := io.WriteString(rt.out, s)
		return value.Int(int64(n)), nil
	})
	rt.def("vprintf", "string format, array values", func(a ...value.Value) (value.Value, error) {
		s, err := sprintf(a[0].AsString(), a[1].AsArray().Values())
		if err != nil {
			return value.Null, err
		}
		n, _ := io.WriteString(rt.out, s)
		return value.Int(int64(n)), nil
	})
	rt.def("error_log", "string message", func(a ...value.Value) (value.Value, error) {
		rt.logger.Warn(a[0].AsString())
		return value.Bool(true), nil
	})
}

// Echo writes the echo rendering of v to the program output
func (rt *Runtime) Echo(v value.Value) error {
	s, err := value.ToStr(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(rt.out, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
