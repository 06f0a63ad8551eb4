package ffmpeg

import (
	"fmt"
	"strings"

	"slidecast/internal/collage"
	"slidecast/internal/overlay"
)

// Canvas margins and spacing for text card layout, in pixels.
const (
	topMargin      = 80
	leftMargin     = 120
	rightMargin    = 120
	topLineSpacing = 20
)

// EscapeDrawtext escapes a value for use inside a drawtext text='...' clause.
func EscapeDrawtext(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// textStyle carries the typography knobs the filter builders need.
type textStyle struct {
	fontPath      string
	titleFontSize int
	bodyFontSize  int
	lineSpacing   int
	indentWidth   int
}

func (s textStyle) fontClause() string {
	if s.fontPath == "" {
		return ""
	}
	return fmt.Sprintf("fontfile='%s':", EscapeDrawtext(s.fontPath))
}

// buildMediaFilterGraph produces the filter_complex for an image or video
// slide: scale and pad to the canvas, then optional overlay text, year
// label, and debug filename layers. Returns the graph and its output label.
func buildMediaFilterGraph(width, height int, overlayText, labelText, debugText string, style textStyle) (string, string) {
	labelCounter := 0
	nextLabel := func() string {
		name := fmt.Sprintf("v%d", labelCounter)
		labelCounter++
		return name
	}

	var steps []string
	current := nextLabel()
	steps = append(steps, fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p[%s]",
		width, height, width, height, current,
	))

	appendFilter := func(expr string) {
		next := nextLabel()
		steps = append(steps, fmt.Sprintf("[%s]%s[%s]", current, expr, next))
		current = next
	}

	labelFontSize := max(24, style.bodyFontSize*9/10)
	debugFontSize := max(18, style.bodyFontSize*6/10)

	if overlayText != "" {
		appendFilter(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=%d:line_spacing=%d:fontcolor=white:borderw=3:bordercolor=black:text_shaping=1:x=(w-text_w)/2:y=(h-text_h)/2",
			style.fontClause(), EscapeDrawtext(overlayText), style.bodyFontSize, style.lineSpacing,
		))
	}
	if labelText != "" {
		appendFilter(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=0x00000088:text_shaping=1:x=w-tw-40:y=h-th-40",
			style.fontClause(), EscapeDrawtext(labelText), labelFontSize,
		))
	}
	if debugText != "" {
		appendFilter(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=%d:fontcolor=white:borderw=2:bordercolor=black:text_shaping=1:x=40:y=40",
			style.fontClause(), EscapeDrawtext(debugText), debugFontSize,
		))
	}

	return strings.Join(steps, ";"), current
}

// buildTextFilterGraph lays a parsed overlay onto a blank card: centered
// title at the top, right-aligned top lines, then the body flowed downward
// with per-line alignment and bullet indentation.
func buildTextFilterGraph(width, height int, parsed *overlay.Overlay, debugText string, style textStyle) (string, string) {
	labelCounter := 0
	nextLabel := func() string {
		name := fmt.Sprintf("t%d", labelCounter)
		labelCounter++
		return name
	}

	var steps []string
	current := nextLabel()
	steps = append(steps, fmt.Sprintf("[0:v]format=yuv420p[%s]", current))

	appendDrawtext := func(expr string) {
		next := nextLabel()
		steps = append(steps, fmt.Sprintf("[%s]%s[%s]", current, expr, next))
		current = next
	}

	if parsed.Title != "" {
		appendDrawtext(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=%d:fontcolor=white:borderw=3:bordercolor=black:text_shaping=1:x=(w-text_w)/2:y=%d",
			style.fontClause(), EscapeDrawtext(strings.TrimSpace(parsed.Title)), style.titleFontSize, topMargin,
		))
	}

	lineHeight := style.bodyFontSize + style.lineSpacing
	topLines := 0
	for _, line := range parsed.Lines {
		if line.Kind == overlay.LineTop && strings.TrimSpace(line.Display) != "" {
			topLines++
		}
	}

	topBaseY := topMargin + 60
	if parsed.Title != "" {
		topBaseY = topMargin + style.titleFontSize + topLineSpacing
	}
	currentY := topBaseY + topLines*lineHeight
	if parsed.Title != "" {
		currentY += 40
	}

	hasBody := false
	for _, line := range parsed.Lines {
		if line.Kind != overlay.LineBlank && line.Kind != overlay.LineTop && strings.TrimSpace(line.Display) != "" {
			hasBody = true
		}
	}
	if !hasBody && topLines == 0 && parsed.Title == "" {
		currentY = max((height-lineHeight)/2, topMargin+40)
	}

	topIndex := 0
	for _, line := range parsed.Lines {
		if line.Kind == overlay.LineBlank {
			currentY += lineHeight
			continue
		}
		display := strings.TrimSpace(line.Display)
		if display == "" {
			currentY += lineHeight
			continue
		}

		var xExpr, yExpr string
		switch line.Align {
		case overlay.AlignCenter:
			xExpr = "(w-text_w)/2"
			yExpr = fmt.Sprintf("%d", currentY)
			currentY += lineHeight
		case overlay.AlignTop:
			xExpr = fmt.Sprintf("w-text_w-%d", rightMargin)
			yExpr = fmt.Sprintf("%d", topBaseY+topIndex*lineHeight)
			topIndex++
		case overlay.AlignLeft:
			xExpr = fmt.Sprintf("%d", leftMargin+line.Level*style.indentWidth)
			yExpr = fmt.Sprintf("%d", currentY)
			currentY += lineHeight
		default:
			xExpr = fmt.Sprintf("w-text_w-%d", rightMargin+line.Level*style.indentWidth)
			yExpr = fmt.Sprintf("%d", currentY)
			currentY += lineHeight
		}

		appendDrawtext(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=0x00000088:text_shaping=1:x=%s:y=%s",
			style.fontClause(), EscapeDrawtext(display), style.bodyFontSize, xExpr, yExpr,
		))
	}

	if debugText != "" {
		appendDrawtext(fmt.Sprintf(
			"drawtext=%stext='%s':fontsize=32:fontcolor=white:borderw=2:bordercolor=black:text_shaping=1:x=40:y=40",
			style.fontClause(), EscapeDrawtext(debugText),
		))
	}

	return strings.Join(steps, ";"), current
}

// buildCollageFilterGraph scales each member into its grid cell and stacks
// them with xstack at the positions computed by the collage planner.
func buildCollageFilterGraph(plan collage.Plan, memberCount int) string {
	var parts []string
	var labels []string
	for idx := 0; idx < memberCount; idx++ {
		label := fmt.Sprintf("p%d", idx)
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=rgba[%s]",
			idx, plan.CellWidth, plan.CellHeight, plan.CellWidth, plan.CellHeight, label,
		))
		labels = append(labels, "["+label+"]")
	}

	layout := make([]string, 0, len(plan.Positions))
	for _, cell := range plan.Positions {
		layout = append(layout, fmt.Sprintf("%d_%d", cell.X, cell.Y))
	}
	parts = append(parts, fmt.Sprintf(
		"%sxstack=inputs=%d:layout=%s:fill=black[stack]",
		strings.Join(labels, ""), memberCount, strings.Join(layout, "|"),
	))
	parts = append(parts, "[stack]format=rgba[out]")
	return strings.Join(parts, ";")
}
