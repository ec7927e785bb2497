package code

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// RuleHallucinatedCSSProperty flags declarations of properties that do not exist.
const RuleHallucinatedCSSProperty = "hallucinated-css-property"

var cssProperties = wordSet(`
accent-color align-content align-items align-self all animation animation-delay
animation-direction animation-duration animation-fill-mode animation-iteration-count
animation-name animation-play-state animation-timing-function appearance aspect-ratio
backdrop-filter backface-visibility background background-attachment background-blend-mode
background-clip background-color background-image background-origin background-position
background-position-x background-position-y background-repeat background-size
block-size border border-block border-block-end border-block-start border-bottom
border-bottom-color border-bottom-left-radius border-bottom-right-radius border-bottom-style
border-bottom-width border-collapse border-color border-image border-image-outset
border-image-repeat border-image-slice border-image-source border-image-width border-inline
border-inline-end border-inline-start border-left border-left-color border-left-style
border-left-width border-radius border-right border-right-color border-right-style
border-right-width border-spacing border-style border-top border-top-color
border-top-left-radius border-top-right-radius border-top-style border-top-width
border-width bottom box-decoration-break box-shadow box-sizing break-after break-before
break-inside caption-side caret-color clear clip clip-path color color-scheme column-count
column-fill column-gap column-rule column-rule-color column-rule-style column-rule-width
column-span column-width columns contain contain-intrinsic-size container container-name
container-type content content-visibility counter-increment counter-reset counter-set
cursor direction display empty-cells fill filter flex flex-basis flex-direction flex-flow
flex-grow flex-shrink flex-wrap float font font-family font-feature-settings font-kerning
font-optical-sizing font-size font-size-adjust font-stretch font-style font-synthesis
font-variant font-variant-caps font-variant-east-asian font-variant-ligatures
font-variant-numeric font-variation-settings font-weight forced-color-adjust gap grid
grid-area grid-auto-columns grid-auto-flow grid-auto-rows grid-column grid-column-end
grid-column-gap grid-column-start grid-gap grid-row grid-row-end grid-row-gap grid-row-start
grid-template grid-template-areas grid-template-columns grid-template-rows hanging-punctuation
height hyphens image-orientation image-rendering inline-size inset inset-block
inset-block-end inset-block-start inset-inline inset-inline-end inset-inline-start isolation
justify-content justify-items justify-self left letter-spacing line-break line-clamp
line-height list-style list-style-image list-style-position list-style-type margin
margin-block margin-block-end margin-block-start margin-bottom margin-inline
margin-inline-end margin-inline-start margin-left margin-right margin-top mask
mask-clip mask-composite mask-image mask-mode mask-origin mask-position mask-repeat
mask-size max-block-size max-height max-inline-size max-width min-block-size min-height
min-inline-size min-width mix-blend-mode object-fit object-position offset opacity order
orphans outline outline-color outline-offset outline-style outline-width overflow
overflow-anchor overflow-wrap overflow-x overflow-y overscroll-behavior
overscroll-behavior-x overscroll-behavior-y padding padding-block padding-block-end
padding-block-start padding-bottom padding-inline padding-inline-end padding-inline-start
padding-left padding-right padding-top page-break-after page-break-before
page-break-inside paint-order perspective perspective-origin place-content place-items
place-self pointer-events position print-color-adjust quotes resize right rotate row-gap
ruby-align ruby-position scale scroll-behavior scroll-margin scroll-margin-block
scroll-margin-bottom scroll-margin-inline scroll-margin-left scroll-margin-right
scroll-margin-top scroll-padding scroll-padding-block scroll-padding-bottom
scroll-padding-inline scroll-padding-left scroll-padding-right scroll-padding-top
scroll-snap-align scroll-snap-stop scroll-snap-type scrollbar-color scrollbar-gutter
scrollbar-width shape-image-threshold shape-margin shape-outside stroke stroke-width
tab-size table-layout text-align text-align-last text-decoration text-decoration-color
text-decoration-line text-decoration-skip-ink text-decoration-style
text-decoration-thickness text-emphasis text-indent text-justify text-orientation
text-overflow text-rendering text-shadow text-transform text-underline-offset
text-underline-position text-wrap top touch-action transform transform-box
transform-origin transform-style transition transition-delay transition-duration
transition-property transition-timing-function translate unicode-bidi user-select
vertical-align visibility white-space widows width will-change word-break word-spacing
word-wrap writing-mode z-index zoom
`)

func wordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// checkCSS reports unknown property names. Vendor-prefixed and custom
// properties are not checked.
func checkCSS(ctx context.Context, out *analyzers.Output, src *analyzers.Source) error {
	parser := sitter.NewParser()
	parser.SetLanguage(css.GetLanguage())

	content := []byte(src.Text)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("parsing css: %w", err)
	}
	defer tree.Close()

	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		if node.Type() == "property_name" {
			name := strings.ToLower(node.Content(content))
			if !knownProperty(name) {
				point := node.StartPoint()
				out.Report(analyzers.Diagnostic{
					RuleID:   RuleHallucinatedCSSProperty,
					Severity: types.SeverityMedium,
					Message:  fmt.Sprintf("Unknown or hallucinated CSS property '%s'", name),
					Line:     int(point.Row) + 1,
					Column:   int(point.Column) + 1,
				})
			}
			continue
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	return nil
}

func knownProperty(name string) bool {
	if strings.HasPrefix(name, "--") || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "$") {
		return true
	}
	_, ok := cssProperties[name]
	return ok
}
