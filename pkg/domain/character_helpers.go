package domain

// Roster は名前をキーにしたキャラクタープロファイルの集合です。
// Go の map は順序を持たないため、登録順を別途保持して走査結果を決定論的にします。
// 並行アクセスの保護は呼び出し側で行います。
type Roster struct {
	order  []string
	byName map[string]CharacterProfile
}

// NewRoster はプロファイル列から Roster を構築します。同名が複数ある場合は後勝ちです。
func NewRoster(profiles []CharacterProfile) *Roster {
	r := &Roster{byName: make(map[string]CharacterProfile, len(profiles))}
	for _, p := range profiles {
		r.Put(p)
	}
	return r
}

// Find は名前が完全一致するプロファイルを返します。
func (r *Roster) Find(name string) (CharacterProfile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Put はプロファイルを登録または置換します。新規の場合は末尾に追加されます。
func (r *Roster) Put(p CharacterProfile) {
	if _, ok := r.byName[p.Name]; !ok {
		r.order = append(r.order, p.Name)
	}
	r.byName[p.Name] = p
}

// Len は登録済みキャラクター数を返します。
func (r *Roster) Len() int {
	return len(r.order)
}

// Profiles は登録順のコピーを返します。
func (r *Roster) Profiles() []CharacterProfile {
	out := make([]CharacterProfile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// MentionedIn はプロンプト中で言及されているキャラクター名を登録順で返します。
func (r *Roster) MentionedIn(prompt string) []string {
	var names []string
	for _, name := range r.order {
		if r.byName[name].MentionedIn(prompt) {
			names = append(names, name)
		}
	}
	return names
}
