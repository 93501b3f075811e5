package app

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/livemark/internal/decor"
	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/engine"
	"github.com/dshills/livemark/internal/event"
	"github.com/dshills/livemark/internal/style"
	"github.com/dshills/livemark/internal/widget"
)

const tabWidth = 4

// frameKey identifies the inputs that shape one frame's decoration set.
// Frames with an unchanged key reuse the previous set, so repaints that
// change nothing do not spawn new render tasks.
type frameKey struct {
	revision uint64
	caret    int
	top      int
	width    int
	height   int
	pins     int
}

// lineDecor collects the decorations touching one line: line-level style
// classes, covering spans in offset order, and an optional widget anchored
// at the line start.
type lineDecor struct {
	classes   []string
	collapsed bool
	spans     []decor.Instruction
	anchor    *widget.Widget
}

// draw paints one frame: the visible document lines with decorations
// applied, then the status bar.
func (a *App) draw() {
	width, height := a.screen.Size()
	if width <= 0 || height <= 1 {
		return
	}
	bodyH := height - 1

	a.ensureVisible(bodyH)
	set := a.rebuild(a.viewportBytes(bodyH), width, bodyH)
	byLine := a.indexSet(set)

	a.screen.Clear()
	a.screen.HideCursor()

	e := a.editor
	for row := 0; row < bodyH; {
		num := e.top + row
		line, err := e.doc.Line(num)
		if err != nil {
			break
		}
		ld := byLine[num]
		if ld != nil && ld.anchor != nil && ld.anchor.Kind() == widget.KindDiagram {
			rows := a.collapsedRun(byLine, num)
			a.paintFragment(row, bodyH, width, ld.anchor, rows)
			if cnum := e.doc.LineNumberAt(e.caret); cnum >= num && cnum < num+rows {
				a.screen.ShowCursor(0, row)
			}
			row += rows
			continue
		}
		a.paintLine(row, line, ld, width)
		row++
	}

	a.paintStatus(width, height-1)
	a.screen.Show()
}

// ensureVisible scrolls the viewport so the caret line is on screen.
func (a *App) ensureVisible(bodyH int) {
	e := a.editor
	was := e.top
	num := e.doc.LineNumberAt(e.caret)
	if e.top < 1 {
		e.top = 1
	}
	if num < e.top {
		e.top = num
	}
	if num >= e.top+bodyH {
		e.top = num - bodyH + 1
	}
	if last := e.doc.LineCount(); e.top > last {
		e.top = last
	}
	if e.top != was {
		a.bus.Publish(event.TopicViewportChanged, e.top)
	}
}

// viewportBytes converts the visible line window to a byte-offset range.
func (a *App) viewportBytes(bodyH int) engine.Viewport {
	e := a.editor
	first, err := e.doc.Line(e.top)
	if err != nil {
		return engine.Viewport{}
	}
	lastNum := e.top + bodyH - 1
	if n := e.doc.LineCount(); lastNum > n {
		lastNum = n
	}
	last, err := e.doc.Line(lastNum)
	if err != nil {
		return engine.Viewport{}
	}
	return engine.Viewport{From: first.From, To: last.To}
}

// rebuild returns the decoration set for the frame, reusing the previous
// one when nothing that shapes it changed. Replaced sets have their widgets
// torn down so in-flight diagram renders are canceled.
func (a *App) rebuild(vp engine.Viewport, width, bodyH int) *decor.Set {
	e := a.editor
	key := frameKey{
		revision: e.doc.Revision(),
		caret:    e.caret,
		top:      e.top,
		width:    width,
		height:   bodyH,
		pins:     a.session.Pins().Len(),
	}
	if a.lastSet != nil && key == a.lastKey {
		return a.lastSet
	}
	set := a.session.Rebuild(e.Snapshot(vp))
	if a.lastSet != nil {
		teardownWidgets(a.lastSet)
	}
	a.lastKey = key
	a.lastSet = set
	return set
}

func teardownWidgets(set *decor.Set) {
	for _, in := range set.Instructions() {
		if in.Widget != nil {
			in.Widget.Teardown()
		}
	}
}

// indexSet groups a decoration set by 1-based line number.
func (a *App) indexSet(set *decor.Set) map[int]*lineDecor {
	d := a.editor.doc
	byLine := make(map[int]*lineDecor)
	at := func(num int) *lineDecor {
		ld := byLine[num]
		if ld == nil {
			ld = &lineDecor{}
			byLine[num] = ld
		}
		return ld
	}

	for _, in := range set.Instructions() {
		switch {
		case in.Kind == decor.KindLine:
			ld := at(d.LineNumberAt(in.From))
			ld.classes = append(ld.classes, in.Class)
			if in.Class == style.ClassCollapsed {
				ld.collapsed = true
			}
		case in.Kind == decor.KindReplace && in.IsEmpty():
			at(d.LineNumberAt(in.From)).anchor = in.Widget
		default:
			last := in.To - 1
			if last < in.From {
				last = in.From
			}
			for num := d.LineNumberAt(in.From); num <= d.LineNumberAt(last); num++ {
				ld := at(num)
				ld.spans = append(ld.spans, in)
			}
		}
	}
	return byLine
}

// collapsedRun counts the consecutive collapsed lines starting at num.
// This is the screen area a diagram widget paints over.
func (a *App) collapsedRun(byLine map[int]*lineDecor, num int) int {
	run := 0
	for {
		ld := byLine[num+run]
		if ld == nil || !ld.collapsed {
			break
		}
		run++
	}
	if run == 0 {
		run = 1
	}
	return run
}

// paintFragment draws a widget fragment over the given number of rows,
// clipping or padding as needed.
func (a *App) paintFragment(row, bodyH, width int, w *widget.Widget, rows int) {
	frag := w.Fragment(width)
	for i := 0; i < rows && row+i < bodyH; i++ {
		if i >= len(frag.Lines) {
			continue
		}
		fl := frag.Lines[i]
		sty := a.classTcell(tcell.StyleDefault, fl.Class)
		a.drawText(0, row+i, fl.Text, sty, width)
	}
}

// paintLine draws one document line, applying hides, styles, and inline
// widgets, and places the terminal cursor when the caret is on the line.
func (a *App) paintLine(y int, line doc.Line, ld *lineDecor, width int) {
	base := tcell.StyleDefault
	var spans []decor.Instruction
	if ld != nil {
		for _, class := range ld.classes {
			base = a.classTcell(base, class)
		}
		spans = ld.spans
	}

	e := a.editor
	text := e.doc.Slice(line.From, line.To)
	x := 0
	off := line.From
	spanIdx := 0
	state := -1

	for len(text) > 0 && x < width {
		var cluster string
		cluster, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
		clTo := off + len(cluster)

		for spanIdx < len(spans) && spans[spanIdx].To <= off {
			spanIdx++
		}
		var cover *decor.Instruction
		if spanIdx < len(spans) && spans[spanIdx].From <= off && off < spans[spanIdx].To {
			cover = &spans[spanIdx]
		}

		if off == e.caret {
			a.screen.ShowCursor(x, y)
		}

		switch {
		case cover == nil:
			x = a.drawCluster(x, y, cluster, base, width)
		case cover.Kind == decor.KindHide:
			// Skipped entirely.
		case cover.Kind == decor.KindReplace:
			if off == cover.From && cover.Widget != nil {
				frag := cover.Widget.Fragment(width - x)
				if frag.Height() > 0 {
					fl := frag.Lines[0]
					x = a.drawText(x, y, fl.Text, a.classTcell(base, fl.Class), width)
				}
			}
		case cover.Kind == decor.KindStyle:
			x = a.drawCluster(x, y, cluster, a.classTcell(base, cover.Class), width)
		}
		off = clTo
	}

	if e.caret == line.To && x < width {
		a.screen.ShowCursor(x, y)
	}

	// Extend a line-level background across the row.
	if ld != nil && len(ld.classes) > 0 {
		for ; x < width; x++ {
			a.screen.SetContent(x, y, ' ', nil, base)
		}
	}
}

// drawCluster draws one grapheme cluster and returns the next column. Tabs
// expand to spaces; a cluster that does not fit in the remaining width is
// clipped.
func (a *App) drawCluster(x, y int, cluster string, sty tcell.Style, width int) int {
	if cluster == "\t" {
		for i := 0; i < tabWidth && x < width; i++ {
			a.screen.SetContent(x, y, ' ', nil, sty)
			x++
		}
		return x
	}
	w := uniseg.StringWidth(cluster)
	if w < 1 {
		w = 1
	}
	if x+w > width {
		return width
	}
	runes := []rune(cluster)
	a.screen.SetContent(x, y, runes[0], runes[1:], sty)
	return x + w
}

// drawText draws a string cluster by cluster, clipped to width.
func (a *App) drawText(x, y int, s string, sty tcell.Style, width int) int {
	state := -1
	for len(s) > 0 && x < width {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		x = a.drawCluster(x, y, cluster, sty, width)
	}
	return x
}

// paintStatus draws the status bar on the given row.
func (a *App) paintStatus(width, y int) {
	e := a.editor
	name := e.path
	if name == "" {
		name = "[no name]"
	}
	marks := ""
	if e.dirty {
		marks += " +"
	}
	if e.readOnly {
		marks += " [ro]"
	}
	left := " " + name + marks
	if a.status != "" {
		left += "  | " + a.status
	}
	right := fmt.Sprintf("%d:%d  %s ", e.doc.LineNumberAt(e.caret), e.Column()+1, a.renderer.Name())

	sty := tcell.StyleDefault.Reverse(true)
	x := a.drawText(0, y, left, sty, width)
	pad := width - x - uniseg.StringWidth(right)
	for ; pad > 0; pad-- {
		a.screen.SetContent(x, y, ' ', nil, sty)
		x++
	}
	a.drawText(x, y, right, sty, width)
}

// classTcell resolves a style class through the theme onto a tcell style.
func (a *App) classTcell(base tcell.Style, class string) tcell.Style {
	if class == "" {
		return base
	}
	s := a.theme.Style(class)
	if s.Fg.IsSet() {
		base = base.Foreground(tcell.NewRGBColor(int32(s.Fg.R), int32(s.Fg.G), int32(s.Fg.B)))
	}
	if s.Bg.IsSet() {
		base = base.Background(tcell.NewRGBColor(int32(s.Bg.R), int32(s.Bg.G), int32(s.Bg.B)))
	}
	if s.Attrs.Has(style.AttrBold) {
		base = base.Bold(true)
	}
	if s.Attrs.Has(style.AttrItalic) {
		base = base.Italic(true)
	}
	if s.Attrs.Has(style.AttrUnderline) {
		base = base.Underline(true)
	}
	if s.Attrs.Has(style.AttrStrike) {
		base = base.StrikeThrough(true)
	}
	if s.Attrs.Has(style.AttrDim) {
		base = base.Dim(true)
	}
	if s.Attrs.Has(style.AttrReverse) {
		base = base.Reverse(true)
	}
	return base
}
