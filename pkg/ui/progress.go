// pkg/ui/progress.go - native progress window shown while installers run.
//
// The window runs its own locked OS thread with a standard Win32 message
// loop. The deployment thread talks to it only through SetWindowText and
// posted messages, which are safe across threads.

package ui

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/gonutz/w32/v2"
)

const (
	idcStatusLabel = 1001
	idcProgressBar = 1002

	pbsMarquee     = 0x08
	pbmSetMarquee  = 0x040A // WM_USER + 10
	windowWidth    = 420
	windowHeight   = 160
)

// ProgressWindow is a marquee progress window with a status line.
type ProgressWindow struct {
	mu    sync.Mutex
	hwnd  w32.HWND
	label w32.HWND
	done  chan struct{}
}

// ShowProgress creates and displays the progress window. Returns an error
// when the window cannot be created (no interactive desktop).
func ShowProgress(title, text string) (*ProgressWindow, error) {
	p := &ProgressWindow{done: make(chan struct{})}
	ready := make(chan error, 1)

	go p.run(title, text, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the status line text.
func (p *ProgressWindow) Update(text string) {
	p.mu.Lock()
	label := p.label
	p.mu.Unlock()
	if label != 0 {
		w32.SetWindowText(label, text)
	}
}

// Close dismisses the window and waits for its thread to exit.
func (p *ProgressWindow) Close() {
	p.mu.Lock()
	hwnd := p.hwnd
	p.mu.Unlock()
	if hwnd == 0 {
		return
	}
	w32.PostMessage(hwnd, w32.WM_CLOSE, 0, 0)
	<-p.done
}

// run owns the window: class registration, creation, and message loop.
func (p *ProgressWindow) run(title, text string, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(p.done)

	hInstance := w32.GetModuleHandle("")

	var wc w32.WNDCLASSEX
	wc.Size = uint32(unsafe.Sizeof(wc))
	wc.Style = w32.CS_HREDRAW | w32.CS_VREDRAW
	wc.WndProc = syscall.NewCallback(func(hwnd w32.HWND, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case w32.WM_CLOSE:
			w32.DestroyWindow(hwnd)
			return 0
		case w32.WM_DESTROY:
			w32.PostQuitMessage(0)
			return 0
		}
		return w32.DefWindowProc(hwnd, msg, wParam, lParam)
	})
	wc.Instance = hInstance
	wc.Cursor = w32.LoadCursor(0, w32.MakeIntResource(32512)) // IDC_ARROW
	wc.Background = w32.HBRUSH(w32.COLOR_WINDOW + 1)
	className, _ := syscall.UTF16PtrFromString("VPNDeployProgress")
	wc.ClassName = className
	if w32.RegisterClassEx(&wc) == 0 {
		ready <- fmt.Errorf("failed to register progress window class")
		return
	}

	titlePtr, _ := syscall.UTF16PtrFromString(title)
	hwnd := w32.CreateWindowEx(
		w32.WS_EX_TOPMOST,
		className,
		titlePtr,
		w32.WS_OVERLAPPED|w32.WS_CAPTION,
		w32.CW_USEDEFAULT, w32.CW_USEDEFAULT, windowWidth, windowHeight,
		0, 0, hInstance, nil)
	if hwnd == 0 {
		ready <- fmt.Errorf("failed to create progress window")
		return
	}

	staticClass, _ := syscall.UTF16PtrFromString("STATIC")
	textPtr, _ := syscall.UTF16PtrFromString(text)
	label := w32.CreateWindowEx(
		0,
		staticClass,
		textPtr,
		w32.WS_VISIBLE|w32.WS_CHILD|w32.SS_CENTER,
		20, 20, windowWidth-60, 40,
		hwnd, idcStatusLabel, hInstance, nil)

	progressClass, _ := syscall.UTF16PtrFromString("msctls_progress32")
	emptyPtr, _ := syscall.UTF16PtrFromString("")
	bar := w32.CreateWindowEx(
		0,
		progressClass,
		emptyPtr,
		w32.WS_VISIBLE|w32.WS_CHILD|pbsMarquee,
		20, 70, windowWidth-60, 22,
		hwnd, idcProgressBar, hInstance, nil)
	w32.SendMessage(bar, pbmSetMarquee, 1, 30)

	p.mu.Lock()
	p.hwnd = hwnd
	p.label = label
	p.mu.Unlock()

	w32.ShowWindow(hwnd, w32.SW_SHOW)
	w32.UpdateWindow(hwnd)
	ready <- nil

	var msg w32.MSG
	for {
		bRet := w32.GetMessage(&msg, 0, 0, 0)
		if bRet == 0 || bRet == -1 { // WM_QUIT or error
			break
		}
		w32.TranslateMessage(&msg)
		w32.DispatchMessage(&msg)
	}

	p.mu.Lock()
	p.hwnd = 0
	p.label = 0
	p.mu.Unlock()
}
