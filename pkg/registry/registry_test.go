package registry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口：合法选项成功，未知字段失败。
func TestFactories(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name string
		good string
		make func(json.RawMessage) (any, error)
	}{
		{"reader/fs", `{"buf_size":1024}`, func(r json.RawMessage) (any, error) { return Reader["fs"](r) }},
		{"encoder/fixedwidth", `{"strict":true}`, func(r json.RawMessage) (any, error) { return Encoder["fixedwidth"](r) }},
		{"partitioner/parity", `{}`, func(r json.RawMessage) (any, error) { return Partitioner["parity"](r) }},
		{"partitioner/balanced", `{}`, func(r json.RawMessage) (any, error) { return Partitioner["balanced"](r) }},
		{"searcher/substring", `{}`, func(r json.RawMessage) (any, error) { return Searcher["substring"](r) }},
		{"assembler/report", `{"trim_padding":true}`, func(r json.RawMessage) (any, error) { return Assembler["report"](r) }},
		{"writer/fs", fmt.Sprintf(`{"output_dir":%q}`, tmp), func(r json.RawMessage) (any, error) { return Writer["fs"](r) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if v, err := tc.make(json.RawMessage(tc.good)); err != nil || v == nil {
				t.Fatalf("good options: %v", err)
			}
			if v, err := tc.make(nil); err != nil || v == nil {
				t.Fatalf("nil options: %v", err)
			}
			if _, err := tc.make(json.RawMessage(`{"x":1}`)); err == nil {
				t.Fatalf("未对未知字段报错")
			}
		})
	}
}

// TestNames 注册名按字典序返回。
func TestNames(t *testing.T) {
	if got := Names(Partitioner); !reflect.DeepEqual(got, []string{"balanced", "parity"}) {
		t.Fatalf("names %v", got)
	}
}
