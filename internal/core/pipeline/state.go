package pipeline

import "fmt"

// State はパイプライン実行中の状態
type State int

const (
	StateInit State = iota
	StateLoadCorpus
	StateChunk
	StateIndex
	StateAwaitQuery
	StateEmbedQuery
	StateRetrieve
	StateFormatPrompt
	StateGenerate
	StatePrint
	StateDone
)

var stateNames = map[State]string{
	StateInit:         "INIT",
	StateLoadCorpus:   "LOAD_CORPUS",
	StateChunk:        "CHUNK",
	StateIndex:        "INDEX",
	StateAwaitQuery:   "AWAIT_QUERY",
	StateEmbedQuery:   "EMBED_QUERY",
	StateRetrieve:     "RETRIEVE",
	StateFormatPrompt: "FORMAT_PROMPT",
	StateGenerate:     "GENERATE",
	StatePrint:        "PRINT",
	StateDone:         "DONE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mode はパイプラインの実行モード
type Mode int

const (
	// ModeFull はコーパスを読み込んでインデックスを作り、質問に答える
	ModeFull Mode = iota
	// ModeIndexOnly はインデックス作成までで終了する
	ModeIndexOnly
	// ModeAttach は既存の永続コレクションに接続して質問に答える
	ModeAttach
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeIndexOnly:
		return "index-only"
	case ModeAttach:
		return "attach"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode は "full" / "index-only" / "attach" を Mode に変換する
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "full":
		return ModeFull, nil
	case "index-only":
		return ModeIndexOnly, nil
	case "attach":
		return ModeAttach, nil
	default:
		return ModeFull, fmt.Errorf("unknown mode %q (full|index-only|attach)", s)
	}
}

// IDScheme はインデックスするドキュメントのID付与方式
type IDScheme string

const (
	// IDSequential はコーパス（またはチャンク）のIDをそのまま使う
	IDSequential IDScheme = "sequential"
	// IDUUID はドキュメントごとにUUIDを振る
	IDUUID IDScheme = "uuid"
)

// ParseIDScheme は文字列をIDSchemeに変換する
func ParseIDScheme(s string) (IDScheme, error) {
	switch IDScheme(s) {
	case IDSequential, IDUUID:
		return IDScheme(s), nil
	case "":
		return IDSequential, nil
	default:
		return "", fmt.Errorf("unknown id scheme %q (sequential|uuid)", s)
	}
}
