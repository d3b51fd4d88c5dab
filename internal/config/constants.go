package config

// TemplateFileExt is the suffix tried when a template name has none.
const TemplateFileExt = ".liquid"

// TemplateFileExtensions are all recognized template file extensions.
var TemplateFileExtensions = []string{".liquid", ".html", ".txt"}

// MaxContextDepth bounds how many namespaces a render context may stack.
const MaxContextDepth = 30

// Tag names
const (
	TagIf         = "if"
	TagElsif      = "elsif"
	TagElse       = "else"
	TagEndIf      = "endif"
	TagUnless     = "unless"
	TagEndUnless  = "endunless"
	TagFor        = "for"
	TagEndFor     = "endfor"
	TagTableRow   = "tablerow"
	TagEndTable   = "endtablerow"
	TagCycle      = "cycle"
	TagIncrement  = "increment"
	TagDecrement  = "decrement"
	TagAssign     = "assign"
	TagCapture    = "capture"
	TagEndCapture = "endcapture"
	TagBreak      = "break"
	TagContinue   = "continue"
	TagComment    = "comment"
	TagEndComment = "endcomment"
	TagRaw        = "raw"
	TagEndRaw     = "endraw"
)

// Names of the helper namespaces exposed inside loops.
const (
	ForLoopName      = "forloop"
	TableRowLoopName = "tablerowloop"
	TemplateDropName = "template"
)

// Backend names
const (
	BackendVM   = "vm"
	BackendTree = "tree"
)

// Render modes
const (
	ModeStrict = "strict"
	ModeWarn   = "warn"
	ModeLax    = "lax"
)

// HasTemplateExt reports whether path ends in a recognized template
// extension.
func HasTemplateExt(path string) bool {
	return TemplateExt(path) != ""
}

// TemplateExt returns the recognized template extension of path, or "".
func TemplateExt(path string) string {
	for _, ext := range TemplateFileExtensions {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return ext
		}
	}
	return ""
}

// TrimTemplateExt removes a recognized template extension from path.
func TrimTemplateExt(path string) string {
	return path[:len(path)-len(TemplateExt(path))]
}
