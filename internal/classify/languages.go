package classify

import "strings"

// flagOrder fixes the alternation order of the flag pattern
var flagOrder = []string{
	"🇬🇧", "🇺🇸", "🇩🇪", "🇫🇷", "🇮🇹", "🇪🇸", "🇯🇵", "🇰🇷", "🇨🇳",
	"🇧🇷", "🇵🇹", "🇷🇺", "🇳🇱", "🇵🇱", "🇸🇪", "🇳🇴", "🇩🇰", "🇫🇮",
	"🇬🇷", "🇹🇷", "🇮🇳", "🇹🇭", "🇻🇳", "🇮🇩", "🇲🇽", "🇦🇷",
}

// flagLanguages maps national-flag symbols to language names. Regional
// variants share a name and collapse during deduplication.
var flagLanguages = map[string]string{
	"🇬🇧": "English",
	"🇺🇸": "English",
	"🇩🇪": "German",
	"🇫🇷": "French",
	"🇮🇹": "Italian",
	"🇪🇸": "Spanish",
	"🇲🇽": "Spanish",
	"🇦🇷": "Spanish",
	"🇯🇵": "Japanese",
	"🇰🇷": "Korean",
	"🇨🇳": "Chinese",
	"🇧🇷": "Portuguese",
	"🇵🇹": "Portuguese",
	"🇷🇺": "Russian",
	"🇳🇱": "Dutch",
	"🇵🇱": "Polish",
	"🇸🇪": "Swedish",
	"🇳🇴": "Norwegian",
	"🇩🇰": "Danish",
	"🇫🇮": "Finnish",
	"🇬🇷": "Greek",
	"🇹🇷": "Turkish",
	"🇮🇳": "Hindi",
	"🇹🇭": "Thai",
	"🇻🇳": "Vietnamese",
	"🇮🇩": "Indonesian",
}

// flagPattern builds the alternation matching any known flag symbol
func flagPattern() string {
	return "(" + strings.Join(flagOrder, "|") + ")"
}
