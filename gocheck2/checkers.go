// Extensions to the go-check unittest framework.
//
// NOTE: see https://github.com/go-check/check/pull/6 for reasons why these
// checkers live here.
package gocheck2

import (
	. "gopkg.in/check.v1"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
// For example:
//
//     c.Assert(value, IsTrue)
//
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
// For example:
//
//     c.Assert(value, IsFalse)
//
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// BytesEquals checker.

type bytesEqualsChecker struct {
	*CheckerInfo
}

func toBytes(value interface{}) (b []byte, ok bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	case nil:
		return nil, true
	}
	return nil, false
}

func (checker *bytesEqualsChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := toBytes(params[0])
	if !ok {
		return false, "Obtained value must be []byte, string or nil"
	}
	expected, ok := toBytes(params[1])
	if !ok {
		return false, "Expected value must be []byte, string or nil"
	}

	if (obtained == nil) != (expected == nil) {
		return false, ""
	}
	return string(obtained) == string(expected), ""
}

// The BytesEquals checker compares byte payloads, treating a nil slice (a
// cache miss) as distinct from an empty one.  Either side may be a string.
//
// For example:
//
//     c.Assert(client.Get(ctx, "k"), BytesEquals, "v1")
//     c.Assert(client.Get(ctx, "missing"), BytesEquals, nil)
//
var BytesEquals Checker = &bytesEqualsChecker{
	&CheckerInfo{Name: "BytesEquals", Params: []string{"obtained", "expected"}},
}
