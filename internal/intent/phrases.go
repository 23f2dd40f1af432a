package intent

// Rule binds an intent label to the phrases that trigger it.
type Rule struct {
	Label   Label
	Phrases []string
}

// DefaultRules is the ordered phrase table. Classification walks it top to
// bottom and the first rule with a matching phrase wins.
var DefaultRules = []Rule{
	{
		Label: Greeting,
		Phrases: []string{
			"hello", "hi", "hey", "good morning", "good evening",
			"good afternoon", "morning", "evening", "afternoon",
			"hy", "hy there", "wassup", "howdy",
		},
	},
	{
		Label: Farewell,
		Phrases: []string{
			"bye", "goodbye", "see you", "take care", "later", "by",
			"exit", "quit", "leave",
		},
	},
	{
		Label: Thanks,
		Phrases: []string{
			"thanks", "thank you", "thx", "thank u", "appreciate it",
			"thankyou", "thnx",
		},
	},
	{
		Label: Identity,
		Phrases: []string{
			"who are you", "what are you", "who r u", "what r u",
			"tell me about yourself", "introduce yourself", "about you",
		},
	},
	{
		Label: Help,
		Phrases: []string{
			"help", "can you help", "i need help", "please help",
			"assist me", "help me", "help please", "need assistance",
		},
	},
}

// explanationPhrases mark a request for prose. They take precedence over
// codeKeywords.
var explanationPhrases = []string{
	"what is", "tell me about", "explain", "describe", "difference between",
	"how does", "what are", "definition", "meaning", "understand",
	"learn about", "know about", "info about", "information about",
	"tutorial on", "guide to", "about",
}

var codeKeywords = []string{
	"write", "create", "generate", "build", "implement", "code",
	"function", "class", "script", "program", "snippet", "example",
	"show me", "can you", "help me", "make", "how to", "write a",
	"create a", "build a", "make a", "implement a",
}

type language struct {
	name     string
	keywords []string
}

// languages is checked in order; the first keyword hit decides.
var languages = []language{
	{"python", []string{"python", "py"}},
	{"javascript", []string{"javascript", "js", "node"}},
	{"java", []string{"java"}},
	{"sql", []string{"sql", "database", "query"}},
	{"html", []string{"html"}},
	{"css", []string{"css"}},
	{"cpp", []string{"c++", "cpp"}},
	{"csharp", []string{"c#", "csharp", "c sharp"}},
	{"ruby", []string{"ruby"}},
	{"php", []string{"php"}},
	{"go", []string{"go", "golang"}},
}

// DefaultLanguage is returned when no language keyword is present.
const DefaultLanguage = "python"
