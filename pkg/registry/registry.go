package registry

import (
	"bytes"
	"encoding/json"
	"sort"

	"pgrep/pkg/contract"
	asmr "pgrep/plugins/assembler/report"
	fwenc "pgrep/plugins/encoder/fixedwidth"
	pbal "pgrep/plugins/partitioner/balanced"
	ppar "pgrep/plugins/partitioner/parity"
	rfs "pgrep/plugins/reader/filesystem"
	subs "pgrep/plugins/searcher/substring"
	wfs "pgrep/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewEncoder 工厂签名：接收原样 JSON Options。
type NewEncoder func(raw json.RawMessage) (contract.Encoder, error)

// NewPartitioner 工厂签名：接收原样 JSON Options。
type NewPartitioner func(raw json.RawMessage) (contract.Partitioner, error)

// NewSearcher 工厂签名：接收原样 JSON Options。
type NewSearcher func(raw json.RawMessage) (contract.Searcher, error)

// NewAssembler 工厂签名：接收原样 JSON Options。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Encoder 工厂注册表。
var Encoder = map[string]NewEncoder{
	// fixedwidth: 81 字节定长记录编码器
	"fixedwidth": func(raw json.RawMessage) (contract.Encoder, error) {
		var opts fwenc.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fwenc.New(&opts), nil
	},
}

// Partitioner 工厂注册表。
var Partitioner = map[string]NewPartitioner{
	// parity: 按总行数奇偶选择 scatter/scatterv
	"parity": func(raw json.RawMessage) (contract.Partitioner, error) {
		var opts ppar.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ppar.New(&opts), nil
	},
	// balanced: 余数全部交给最后一个 rank，覆盖所有行
	"balanced": func(raw json.RawMessage) (contract.Partitioner, error) {
		var opts pbal.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pbal.New(&opts), nil
	},
}

// Searcher 工厂注册表。
var Searcher = map[string]NewSearcher{
	"substring": func(raw json.RawMessage) (contract.Searcher, error) {
		var opts subs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return subs.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// report: "<行号>: <文本>" 逐行渲染
	"report": func(raw json.RawMessage) (contract.Assembler, error) {
		var opts asmr.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return asmr.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回注册表中的实现名（字典序），用于错误提示与 --help。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
