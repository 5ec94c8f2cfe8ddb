package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// FieldKey: 字段查表键（原始 tag + 原始选项串）。
// HasOptions=false 表示“无选项”，与空串选项（"TEL;:x"）区分。
type FieldKey struct {
	Tag        string
	Options    string
	HasOptions bool
}

// Plain 构造无选项的 FieldKey。
func Plain(tag string) FieldKey { return FieldKey{Tag: tag} }

// WithOptions 构造带选项的 FieldKey。
func WithOptions(tag, options string) FieldKey {
	return FieldKey{Tag: tag, Options: options, HasOptions: true}
}

func (k FieldKey) String() string {
	if !k.HasOptions {
		return k.Tag
	}
	return k.Tag + ";" + k.Options
}

// Record: 单张名片的解析结果。
// 约束：
// - 键按首次出现顺序保存；
// - 每个键的值列表仅追加，不重排；
// - 由 Parser 独占写入，交付后只读。
type Record struct {
	keys   []string
	values map[string][]string
}

// NewRecord 创建空记录。
func NewRecord() *Record {
	return &Record{values: make(map[string][]string)}
}

// Add 在 key 的值列表尾部追加 v。
func (r *Record) Add(key, v string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append(r.values[key], v)
}

// Keys 返回按插入顺序排列的键（拷贝）。
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values 返回 key 的值列表（拷贝）；不存在时为 nil。
func (r *Record) Values(key string) []string {
	vs, ok := r.values[key]
	if !ok {
		return nil
	}
	out := make([]string, len(vs))
	copy(out, vs)
	return out
}

// Len 返回键数量。
func (r *Record) Len() int { return len(r.keys) }

// Map 返回 key -> values 的独立副本（供编码器使用）。
func (r *Record) Map() map[string][]string {
	out := make(map[string][]string, len(r.keys))
	for _, k := range r.keys {
		out[k] = r.Values(k)
	}
	return out
}
