// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"bytes"
	"errors"
	"reflect"
	"sort"
	"testing"
)

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errors.New("not found")
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func (m mem) IsNotFound(err error) bool {
	return true
}

func (m mem) Iterate(r Range) Iterator {
	var keys []string
	for k := range m {
		if bytes.Compare([]byte(k), r.Start) >= 0 && (len(r.Limit) == 0 || bytes.Compare([]byte(k), r.Limit) < 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if r.Reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}
	i := -1
	return &struct {
		NextFunc
		KeyFunc
		ValueFunc
		ReleaseFunc
		ErrorFunc
	}{
		func() bool { i++; return i < len(keys) },
		func() []byte { return []byte(keys[i]) },
		func() []byte { return []byte(m[keys[i]]) },
		func() {},
		func() error { return nil },
	}
}

func TestBucket_GetterGet(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want string
	}{
		{Bucket(""), "k1", "v1"},
		{Bucket(""), "k2", "v2"},
		{Bucket("k"), "k1", ""},
		{Bucket("k"), "1", "v1"},
		{Bucket("k"), "2", "v2"},
		{Bucket("k1"), "", "v1"},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got, _ := tt.b.NewGetter(m).Get([]byte(tt.key)); !reflect.DeepEqual(string(got), tt.want) {
				t.Errorf("Bucket.NewGetter.Get = %v, want %v", string(got), tt.want)
			}
		})
	}
}

func TestBucket_PutterPut(t *testing.T) {
	m := mem{}
	p := Bucket("b").NewPutter(m)

	if err := p.Put([]byte("1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if m["b1"] != "v1" {
		t.Errorf("Bucket.NewPutter.Put stored %v, want v1", m["b1"])
	}
	if err := p.Delete([]byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["b1"]; ok {
		t.Errorf("Bucket.NewPutter.Delete left the key")
	}
}

func TestBucket_Iterate(t *testing.T) {
	m := mem{"a1": "x", "b1": "v1", "b2": "v2", "b3": "v3", "c1": "y"}

	collect := func(r Range) (keys []string) {
		it := Bucket("b").NewReader(m).Iterate(r)
		defer it.Release()
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		return
	}

	tests := []struct {
		r    Range
		want []string
	}{
		{Range{}, []string{"1", "2", "3"}},
		{Range{Start: []byte("2")}, []string{"2", "3"}},
		{Range{Limit: []byte("3")}, []string{"1", "2"}},
		{Range{Reverse: true}, []string{"3", "2", "1"}},
		{Range{Limit: []byte("3"), Reverse: true}, []string{"2", "1"}},
	}
	for _, tt := range tests {
		if got := collect(tt.r); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Bucket.Iterate(%v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
