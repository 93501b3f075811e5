package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/livemark/internal/engine"
)

// handleKey maps one key event onto an editor or application action.
// Returning ErrQuit ends the main loop; any other error lands in the
// status bar.
func (a *App) handleKey(ev *tcell.EventKey) error {
	a.status = ""
	e := a.editor

	switch ev.Key() {
	case tcell.KeyCtrlQ, tcell.KeyCtrlC:
		return ErrQuit
	case tcell.KeyCtrlS:
		if err := e.Save(); err != nil {
			return err
		}
		a.status = "wrote " + e.Path()
	case tcell.KeyCtrlE:
		return a.editBlockAtCaret()
	case tcell.KeyLeft:
		e.MoveLeft()
	case tcell.KeyRight:
		e.MoveRight()
	case tcell.KeyUp:
		e.MoveUp()
	case tcell.KeyDown:
		e.MoveDown()
	case tcell.KeyHome:
		e.MoveLineStart()
	case tcell.KeyEnd:
		e.MoveLineEnd()
	case tcell.KeyPgUp:
		e.MovePage(-a.pageSize())
	case tcell.KeyPgDn:
		e.MovePage(a.pageSize())
	case tcell.KeyEnter:
		return e.Insert("\n")
	case tcell.KeyTab:
		return e.Insert("  ")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return e.DeleteBack()
	case tcell.KeyDelete:
		return e.DeleteForward()
	case tcell.KeyRune:
		return e.Insert(string(ev.Rune()))
	}
	return nil
}

// editBlockAtCaret pins the diagram block under the caret so its source
// shows raw. The engine moves the caret to the block start via the edit
// event.
func (a *App) editBlockAtCaret() error {
	e := a.editor
	for _, blk := range a.session.Scanner().Blocks(e.doc, 0, e.doc.Len()) {
		if e.caret < blk.Start || e.caret > blk.End {
			continue
		}
		if _, err := a.session.EditBlock(e.Snapshot(engine.Viewport{}), blk.ID); err != nil {
			return err
		}
		a.status = "editing diagram source"
		return nil
	}
	a.status = "no diagram block at cursor"
	return nil
}

// pageSize is the visible text height, used as the page-movement stride.
func (a *App) pageSize() int {
	_, h := a.screen.Size()
	if h <= 1 {
		return 1
	}
	return h - 1
}
