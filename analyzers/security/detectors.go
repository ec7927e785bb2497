package security

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/types"
)

// Detector ids.
const (
	SecretFileAccess        = "secret-file-access"
	EnvSecretAccess         = "env-secret-access"
	EnvDump                 = "env-dump"
	ReverseShell            = "reverse-shell"
	SSHKeyInjection         = "ssh-key-injection"
	CronInjection           = "cron-injection"
	SuspiciousDomain        = "suspicious-domain"
	PromptInjectionIgnore   = "prompt-injection-ignore"
	PromptInjectionTakeover = "prompt-injection-takeover"
	HiddenSystemPrompt      = "hidden-system-prompt"
	DNSExfiltration         = "dns-exfiltration"
	WorldReadableSecret     = "world-readable-secret"
	Base64SuspiciousContent = "base64-suspicious-content"

	EnvExfiltration  = "env-exfiltration"
	FileExfiltration = "file-exfiltration"

	// weak signals, never reported on their own
	outboundHTTP = "outbound-http"
	base64Encode = "base64-encode"
)

// Severities holds the severity of every reported detector.
var Severities = map[string]types.Severity{
	SecretFileAccess:        types.SeverityHigh,
	EnvSecretAccess:         types.SeverityMedium,
	EnvDump:                 types.SeverityHigh,
	ReverseShell:            types.SeverityCritical,
	SSHKeyInjection:         types.SeverityCritical,
	CronInjection:           types.SeverityCritical,
	SuspiciousDomain:        types.SeverityHigh,
	PromptInjectionIgnore:   types.SeverityMedium,
	PromptInjectionTakeover: types.SeverityMedium,
	HiddenSystemPrompt:      types.SeverityMedium,
	DNSExfiltration:         types.SeverityHigh,
	WorldReadableSecret:     types.SeverityCritical,
	Base64SuspiciousContent: types.SeverityHigh,
	EnvExfiltration:         types.SeverityCritical,
	FileExfiltration:        types.SeverityCritical,
}

const secretName = `\w*(?:key|secret|token|passw(?:or)?d|credential|auth|private)\w*`

type detector struct {
	id      string
	pattern *regexp.Regexp
	message string
}

var detectors = []detector{
	{
		id:      SecretFileAccess,
		pattern: regexp.MustCompile(`(?i)(?:\bopen\s*\(|\bread(?:File|FileSync)?\s*\(|\bReadFile\s*\(|\bFile\.read\s*\(|\bcat\s+|\bhead\s+|\btail\s+|\bcp\s+|\bscp\s+).*?(?:/etc/shadow|/etc/passwd|\.ssh/|\.aws/credentials|\.env\b|\.pem\b|\.key\b|id_rsa|id_dsa|id_ecdsa|id_ed25519|\.netrc|\.git-credentials|\.docker/config\.json|\.kube/config)`),
		message: "Access to a sensitive secret file",
	},
	{
		id: EnvSecretAccess,
		pattern: regexp.MustCompile(`(?i)(?:os\.environ\s*\[\s*["']` + secretName +
			`|os\.environ\.get\s*\(\s*["']` + secretName +
			`|os\.getenv\s*\(\s*["']` + secretName +
			`|process\.env\.` + secretName +
			`|process\.env\[\s*["']` + secretName +
			`|os\.(?:Getenv|LookupEnv)\s*\(\s*"` + secretName +
			`|env::var\s*\(\s*"` + secretName +
			`|System\.getenv\s*\(\s*"` + secretName +
			`|ENV(?:\.fetch\s*\(|\[)\s*["']` + secretName + `)`),
		message: "Read of a secret environment variable",
	},
	{
		id:      EnvDump,
		pattern: regexp.MustCompile(`(?i)(?:JSON\.stringify\s*\(\s*process\.env\s*[,)]|Object\.(?:keys|entries|values)\s*\(\s*process\.env\s*\)|console\.log\s*\(\s*process\.env\s*\)|\.\.\.process\.env\b|dict\s*\(\s*os\.environ\s*\)|for\s+\w+(?:\s*,\s*\w+)?\s+in\s+os\.environ\b|os\.environ\.(?:items|copy)\s*\(|os\.Environ\s*\(\s*\)|env::vars\s*\(\s*\)|ENV\.(?:each|to_h)\b|^\s*(?:printenv|env|export\s+-p)\s*(?:[|>]|$))`),
		message: "Dump of all environment variables",
	},
	{
		id:      ReverseShell,
		pattern: regexp.MustCompile(`(?i)(?:bash\s+-i\s*>&|/dev/tcp/[\w.]+/\d+|\bnc(?:at)?\s+(?:-\w+\s+)*-e\s|\bnc\s+-\w*e\w*\s+\S+\s+\d+|python[23]?\s+-c\s+.*socket|perl\s+-e\s+.*socket|ruby\s+-rsocket|php\s+-r\s+.*fsockopen|socat\s+.*exec:|mkfifo\s+/tmp/\S+.*\bnc\b|/bin/(?:ba)?sh\s+0<&\d)`),
		message: "Reverse shell pattern",
	},
	{
		id:      SSHKeyInjection,
		pattern: regexp.MustCompile(`(?i)(?:>>\s*\S*authorized_keys|ssh-(?:rsa|ed25519|dss)\s+AAAA\S*.*authorized_keys|open\s*\([^)]*authorized_keys[^)]*["']a|ssh-copy-id\s)`),
		message: "SSH key injection into authorized_keys",
	},
	{
		id:      CronInjection,
		pattern: regexp.MustCompile(`(?i)(?:\|\s*crontab\b|>>?\s*/etc/cron|/var/spool/cron/|\(\s*crontab\s+-l)`),
		message: "Cron job injection",
	},
	{
		id:      SuspiciousDomain,
		pattern: regexp.MustCompile(`(?i)\b(?:webhook\.site|requestbin\.(?:com|net)|[\w-]+\.ngrok(?:-free)?\.(?:io|app)|ngrok\.io|burpcollaborator\.net|[\w-]+\.oastify\.com|pipedream\.net|hookbin\.com|[\w-]+\.beeceptor\.com|interact\.sh|[\w-]+\.oast\.(?:fun|me|pro|live|site|online)|canarytokens\.com)\b`),
		message: "Reference to a data collection or tunnelling domain",
	},
	{
		id:      PromptInjectionIgnore,
		pattern: regexp.MustCompile(`(?i)(?:\b(?:ignore|disregard|forget|override)\s+(?:all\s+|any\s+|the\s+)?(?:of\s+)?(?:your\s+|the\s+)?(?:previous|prior|above|earlier|preceding|original)\s+(?:instructions|prompts?|rules|directions|guidelines|context)|\bforget\s+everything\b)`),
		message: "Prompt injection: instruction to ignore previous instructions",
	},
	{
		id:      PromptInjectionTakeover,
		pattern: regexp.MustCompile(`(?i)(?:\byou\s+are\s+now\s+(?:a|an|in|the|DAN|my)\b|\bfrom\s+now\s+on,?\s+you\b|\bnew\s+(?:system\s+)?instructions\s*:|\bact\s+as\s+(?:an?\s+)?(?:unrestricted|jailbroken|unfiltered|evil)\b|\bchange\s+your\s+(?:role|behaviou?r|instructions)|\bsystem\s*:\s*you\s+(?:are|must|will))`),
		message: "Prompt injection: attempt to take over the assistant role",
	},
	{
		id:      HiddenSystemPrompt,
		pattern: regexp.MustCompile(`(?i)(?:<!--|/\*|//|#)\s*(?:system\s*(?:prompt)?\s*[:=]|(?:assistant|ai|agent|llm|model)\s*[:,]\s*(?:you\s+(?:must|should|will|are)|ignore|always|never)|you\s+are\s+(?:an?\s+)?(?:helpful\s+)?(?:ai|assistant)\b)`),
		message: "Hidden system prompt in a comment",
	},
	{
		id:      DNSExfiltration,
		pattern: regexp.MustCompile("(?i)(?:\\b(?:nslookup|dig|host)\\s+\\S*(?:[a-z0-9]{20,}|\\$\\(|\\$\\{|`)\\S*\\.[a-z0-9.-]+|(?:gethostbyname|getaddrinfo|dns\\.(?:resolve\\w*|lookup)|Lookup(?:Host|IP|TXT))\\s*\\(\\s*(?:f[\"'][^\"']*\\{|[\\w.\\[\\]'\"]+\\s*\\+|`[^`]*\\$\\{))"),
		message: "DNS exfiltration: data encoded into a looked-up hostname",
	},
	{
		id:      WorldReadableSecret,
		pattern: regexp.MustCompile(`(?i)(?:chmod\s+(?:-R\s+)?(?:0?777|0?666|o\+r|a\+r)|chmod\s*\([^)]*0o?(?:777|666)|umask\s*\(?\s*0+\s*\)?).*?(?:secret|passw|token|credential|\.pem|\.key\b|id_rsa|\.env\b|private|api_?key)`),
		message: "Secret written with world-readable permissions",
	},
}

var (
	outboundCall = regexp.MustCompile(`(?i)(?:\brequests\.(?:post|put|patch|get|request)\s*\(|\bhttpx\.(?:post|put|patch|get)\s*\(|\burlopen\s*\(|\bfetch\s*\(|\baxios(?:\.(?:post|put|patch|get|request))?\s*\(|\bhttp\.(?:Post|PostForm|Get|NewRequest\w*)\s*\(|\$\.(?:post|ajax)\s*\(|\bcurl\s+|\bwget\s+|Invoke-WebRequest|reqwest::\w+|\bXMLHttpRequest\b|\.post\s*\()`)
	urlHost      = regexp.MustCompile(`(?i)\b(?:https?|wss?)://(?:[^/\s"'@]*@)?(\[[0-9a-f:]+\]|[^/\s"':?#]+)`)
	encodeCall   = regexp.MustCompile(`(?i)(?:\bbase64\.(?:b64encode|standard_b64encode|urlsafe_b64encode|encodebytes|encode)\s*\(|\bbtoa\s*\(|\.toString\s*\(\s*["']base64["']|base64\.(?:Std|URL|RawStd|RawURL)Encoding\.EncodeToString|\|\s*base64\b|\bbase64\s+(?:-w\s*0\s+)?[\w/~.]+)`)
)

type signal struct {
	id     string
	line   int
	column int
}

// outbound reports whether line makes an HTTP call that may leave the
// machine. A call whose only URLs point at local or private hosts is not
// outbound; a call with no visible URL is.
func outbound(line string) (int, bool) {
	loc := outboundCall.FindStringIndex(line)
	if loc == nil {
		return 0, false
	}

	hosts := urlHost.FindAllStringSubmatch(line, -1)
	if len(hosts) == 0 {
		return loc[0], true
	}
	for _, h := range hosts {
		if !internalHost(h[1]) {
			return loc[0], true
		}
	}
	return 0, false
}

func internalHost(host string) bool {
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return true
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast()
}
