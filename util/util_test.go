// util/util_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDeltaCoding(t *testing.T) {
	for _, v := range [][]int64{nil, {5}, {0, 1000, 2000, 2500, 2400, -17}} {
		enc := DeltaEncode(v)
		if len(v) > 1 && enc[1] != v[1]-v[0] {
			t.Errorf("%v: expected second delta %d, got %d", v, v[1]-v[0], enc[1])
		}
		if dec := DeltaDecode(enc); !slices.Equal(dec, v) {
			t.Errorf("round trip: got %v, expected %v", dec, v)
		}
	}
}

func TestStoreRetrieveObject(t *testing.T) {
	type obj struct {
		Name  string
		Times []int64
		Alt   map[string]float64
	}
	in := obj{Name: "N123", Times: []int64{1, 2, 3}, Alt: map[string]float64{"TOC": 35000}}

	path := filepath.Join(t.TempDir(), "sub", "obj.msgpack.zst")
	if err := StoreObject(path, in); err != nil {
		t.Fatalf("StoreObject: %v", err)
	}
	var out obj
	if _, err := RetrieveObject(path, &out); err != nil {
		t.Fatalf("RetrieveObject: %v", err)
	}
	if out.Name != in.Name || !slices.Equal(out.Times, in.Times) || out.Alt["TOC"] != 35000 {
		t.Errorf("got %+v, expected %+v", out, in)
	}

	if _, err := RetrieveObject(filepath.Join(t.TempDir(), "missing"), &out); err == nil {
		t.Errorf("expected error for missing file")
	}

	var buf bytes.Buffer
	buf.WriteString("not zstd")
	if err := DecodeObject(&buf, &out); err == nil {
		t.Errorf("expected error decoding garbage")
	}
}

func TestChunkedChan(t *testing.T) {
	c := MakeChunkedChan[int](16, 4)
	go func() {
		for i := range 10 {
			c.Send(i)
		}
		c.Close()
	}()

	var got []int
	var sizes []int
	for chunk := range c.Ch() {
		got = append(got, chunk...)
		sizes = append(sizes, len(chunk))
	}
	if !slices.Equal(got, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("got %v", got)
	}
	if !slices.Equal(sizes, []int{4, 4, 2}) {
		t.Errorf("chunk sizes %v, expected [4 4 2]", sizes)
	}
}

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() {
		t.Errorf("new logger has errors")
	}
	e.Push("flight N123")
	e.Push("waypoint 3")
	e.ErrorString("altitude %d out of range", 70000)
	e.Pop()
	e.Pop()
	e.ErrorString("top-level")

	if !e.HaveErrors() || len(e.Errors()) != 2 {
		t.Fatalf("expected two errors, got %v", e.Errors())
	}
	if e.Errors()[0] != "flight N123 / waypoint 3: altitude 70000 out of range" {
		t.Errorf("unexpected error text %q", e.Errors()[0])
	}
	if e.Errors()[1] != "top-level" {
		t.Errorf("unexpected error text %q", e.Errors()[1])
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("depth %d, expected 0", e.CurrentDepth())
	}
}

func TestFindDuplicateJSONKeys(t *testing.T) {
	type test struct {
		json string
		want []DuplicateJSONKey
	}
	for _, tc := range []test{
		{`{"a": 1, "b": 2}`, nil},
		{`{"a": 1, "a": 2}`, []DuplicateJSONKey{{Path: "", Key: "a"}}},
		{`{"flights": [{"id": "x"}, {"id": "y", "id": "z"}]}`, []DuplicateJSONKey{{Path: "flights.1", Key: "id"}}},
		{`{"a": {"b": [1, 2], "b": {}}, "c": true}`, []DuplicateJSONKey{{Path: "a", Key: "b"}}},
	} {
		if got := FindDuplicateJSONKeys([]byte(tc.json)); !slices.Equal(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.json, got, tc.want)
		}
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	var v struct{ A int }
	err := UnmarshalJSONBytes([]byte("{\n  \"A\": \"x\"\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 in error, got %v", err)
	}
	err = UnmarshalJSONBytes([]byte("{\n\n  \"A\": 1,,\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected line 3 in error, got %v", err)
	}
	if err := UnmarshalJSONBytes([]byte(`{"A": 3}`), &v); err != nil || v.A != 3 {
		t.Errorf("unexpected result %v %+v", err, v)
	}
}
