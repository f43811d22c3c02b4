package realtime

import "strings"

// IDForms 描述两种调用标识：持久形式（作为 function_call_output 的 call_id）与瞬时形式（条目 id）。
type IDForms struct {
	Durable   string
	Transient string
}

// DefaultIDForms 对应 realtime API 的 call_ / item_ 前缀。
var DefaultIDForms = IDForms{Durable: "call_", Transient: "item_"}

func (f IDForms) IsDurable(id string) bool {
	return f.Durable != "" && strings.HasPrefix(id, f.Durable)
}

func (f IDForms) IsTransient(id string) bool {
	return f.Transient != "" && strings.HasPrefix(id, f.Transient)
}

// Resolution 是一次标识解析的结果。
type Resolution struct {
	Canonical string
	// PromotedFrom 非空表示原先的规范 id 被别名到了新的持久 id，调用方需要迁移其状态。
	PromotedFrom string
	// Degraded 表示没有任何上下文可用，只能按原始 id 处理。
	Degraded bool
}

// Resolver 把同一调用的多个标识归并到一个规范 id。
// 别名只增不改，解析沿别名链传递。
type Resolver struct {
	forms      IDForms
	alias      map[string]string
	roots      map[string]struct{}
	lastOpened string
}

func NewResolver(forms IDForms) *Resolver {
	return &Resolver{
		forms: forms,
		alias: make(map[string]string),
		roots: make(map[string]struct{}),
	}
}

// Forms 返回解析器使用的标识形式。
func (r *Resolver) Forms() IDForms {
	return r.forms
}

// Canonical 沿别名链返回规范 id；未知 id 原样返回。
func (r *Resolver) Canonical(id string) string {
	cur := id
	for hops := 0; hops <= len(r.alias); hops++ {
		next, ok := r.alias[cur]
		if !ok {
			return cur
		}
		cur = next
	}
	return cur
}

// Known 报告 id 是否已经是规范 id 或某个别名。
func (r *Resolver) Known(id string) bool {
	if _, ok := r.roots[id]; ok {
		return true
	}
	_, ok := r.alias[id]
	return ok
}

// Aliases 返回解析到 canonical 的全部别名（不含 canonical 本身）。
func (r *Resolver) Aliases(canonical string) []string {
	var out []string
	for id := range r.alias {
		if r.Canonical(id) == canonical {
			out = append(out, id)
		}
	}
	return out
}

// LastOpened 返回最近打开的调用的规范 id。
func (r *Resolver) LastOpened() string {
	if r.lastOpened == "" {
		return ""
	}
	return r.Canonical(r.lastOpened)
}

// ClearLastOpened 在 canonical 仍是最近打开的调用时清空该指针。
func (r *Resolver) ClearLastOpened(canonical string) {
	if r.lastOpened != "" && r.Canonical(r.lastOpened) == canonical {
		r.lastOpened = ""
	}
}

// Link 把 from 设为 to 的别名。from 已有别名、二者相同或会形成环时拒绝。
func (r *Resolver) Link(from, to string) bool {
	if from == "" || to == "" || from == to {
		return false
	}
	if _, aliased := r.alias[from]; aliased {
		return false
	}
	target := r.Canonical(to)
	if target == from {
		return false
	}
	r.alias[from] = target
	delete(r.roots, from)
	r.roots[target] = struct{}{}
	return true
}

// Open 登记一次调用创建，并更新最近打开指针。durableHint 是创建事件同时给出的持久 id（可为空）。
func (r *Resolver) Open(id, durableHint string) Resolution {
	res := r.register(id, durableHint)
	if res.Canonical != "" {
		r.lastOpened = res.Canonical
	}
	return res
}

// Adopt 登记一个此前未见过的调用，但不改变最近打开指针。
func (r *Resolver) Adopt(id, durableHint string) Resolution {
	return r.register(id, durableHint)
}

func (r *Resolver) register(id, durableHint string) Resolution {
	if id == "" {
		id = durableHint
	}
	if id == "" {
		return Resolution{}
	}
	fresh := !r.Known(id)
	if fresh {
		r.roots[id] = struct{}{}
	}
	res := Resolution{Canonical: r.Canonical(id)}
	if durableHint != "" && r.forms.IsDurable(durableHint) && r.Canonical(durableHint) != res.Canonical {
		if r.Link(res.Canonical, durableHint) {
			// 新登记的 id 还没有任何状态，不需要迁移
			if !fresh {
				res.PromotedFrom = res.Canonical
			}
			res.Canonical = r.Canonical(durableHint)
		}
	}
	return res
}

// Promote 处理同时携带已知标识 known 与 call_id 的事件：call_id 归入 known 所属的调用，
// 规范 id 仍是瞬时形式时提升为 call_id。不参考最近打开指针。
func (r *Resolver) Promote(known, callID string) Resolution {
	canonical := r.Canonical(known)
	if callID == "" || callID == canonical {
		return Resolution{Canonical: canonical}
	}
	if r.Known(callID) {
		// call_id 已归属某个调用时以它为准
		return Resolution{Canonical: r.Canonical(callID)}
	}
	if !r.forms.IsDurable(callID) || r.forms.IsDurable(canonical) {
		r.Link(callID, canonical)
		return Resolution{Canonical: canonical}
	}
	r.roots[callID] = struct{}{}
	if !r.Link(canonical, callID) {
		delete(r.roots, callID)
		return Resolution{Canonical: canonical}
	}
	return Resolution{Canonical: callID, PromotedFrom: canonical}
}

// Resolve 解析分片/完成事件里的标识。未知 id 在存在最近打开调用时被别名合并：
// 持久 id 吸收瞬时的最近调用（提升），其他 id 作为最近调用的别名。
func (r *Resolver) Resolve(raw string) Resolution {
	if raw == "" {
		return Resolution{}
	}
	if r.Known(raw) {
		return Resolution{Canonical: r.Canonical(raw)}
	}
	last := r.LastOpened()
	if last == "" {
		r.roots[raw] = struct{}{}
		return Resolution{Canonical: raw, Degraded: true}
	}
	switch {
	case r.forms.IsDurable(raw) && !r.forms.IsDurable(last):
		r.roots[raw] = struct{}{}
		if r.Link(last, raw) {
			r.lastOpened = raw
			return Resolution{Canonical: raw, PromotedFrom: last}
		}
		return Resolution{Canonical: raw, Degraded: true}
	case r.forms.IsDurable(raw):
		// 最近调用已有持久 id，两个持久 id 不合并
		r.roots[raw] = struct{}{}
		return Resolution{Canonical: raw, Degraded: true}
	default:
		if r.Link(raw, last) {
			return Resolution{Canonical: last}
		}
		r.roots[raw] = struct{}{}
		return Resolution{Canonical: raw, Degraded: true}
	}
}
