package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/penumbra/engine/core"
)

const shaderExtension = ".spv"

/**
 * @brief Watches the shader tree recursively and reports changed binaries.
 *
 * Changed binaries are invalidated in the library before onChange runs.
 * onChange is called from the watcher goroutine.
 */
type ShaderWatcher struct {
	library  *ShaderLibrary
	onChange func(path string)

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
}

func NewShaderWatcher(library *ShaderLibrary, onChange func(path string)) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &ShaderWatcher{
		library:  library,
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	if err := sw.watchRecursive(library.Root()); err != nil {
		fsWatch.Close()
		return nil, err
	}

	sw.wg.Add(1)
	go sw.start()
	core.LogInfo("watching %s for shader changes", library.Root())
	return sw, nil
}

func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return errors.New("shader watcher already closed")
	}
	sw.isClosed = true
	sw.mutex.Unlock()

	close(sw.done)
	sw.wg.Wait()
	return sw.fsnotify.Close()
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err.Error())

		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := sw.watchRecursive(e.Name); err != nil {
				core.LogWarn("shader watcher: cannot watch %s: %s", e.Name, err.Error())
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if !strings.HasSuffix(e.Name, shaderExtension) {
		return
	}

	rel, err := filepath.Rel(sw.library.Root(), e.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	sw.library.Invalidate(rel)
	core.LogDebug("shader %s changed", rel)
	if sw.onChange != nil {
		sw.onChange(rel)
	}
}

// watchRecursive adds path and every directory below it to the watch list.
func (sw *ShaderWatcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}
