// Command corekit locates an emulation core for a game image and runs it,
// either in a window or headless for a fixed number of frames.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/halverson/corekit/core"
	"github.com/halverson/corekit/frontend"

	// compiled-in platforms
	_ "github.com/halverson/corekit/gb"
	_ "github.com/halverson/corekit/gba"
)

func main() {
	log.SetFlags(0)

	frames := flag.Int("frames", 0, "run N frames headless and exit")
	noSave := flag.Bool("no-save", false, "skip companion save autoload")
	noPatch := flag.Bool("no-patch", false, "skip companion patch autoload")
	wavPath := flag.String("wav", "", "capture audio to a WAV file")
	shotPath := flag.String("screenshot", "", "write the final frame as PNG (headless mode)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <image>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	c, ok := core.Find(path)
	if !ok {
		log.Fatalf("no supported platform claims %s", path)
	}
	defer c.Close()

	if err := c.Init(); err != nil {
		log.Fatalf("init: %v", err)
	}
	if err := c.LoadFile(path); err != nil {
		log.Fatalf("%v", err)
	}

	w, h := c.DesiredVideoDimensions()
	log.Printf("%s core, %dx%d output", c.Platform(), w, h)

	if !*noSave && c.AutoloadSave() {
		log.Printf("companion save loaded")
	}
	if !*noPatch && c.AutoloadPatch() {
		log.Printf("companion patch applied")
	}

	if *frames > 0 {
		if err := runHeadless(c, *frames, *wavPath, *shotPath); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	session, err := frontend.NewSession(c)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := session.EnableAudio(); err != nil {
		log.Printf("continuing without audio: %v", err)
	}
	if *wavPath != "" {
		session.EnableWAVCapture(*wavPath)
	}

	session.Start()
	window := frontend.NewWindow(session)
	if err := window.Run(fmt.Sprintf("corekit - %s", filepath.Base(path))); err != nil {
		log.Fatalf("%v", err)
	}
}

// runHeadless advances the core a fixed number of frames with no pacing.
// WAV capture forces a per-frame loop; otherwise the core's own run loop
// is driven by a countdown stop condition.
func runHeadless(c *core.Core, frames int, wavPath, shotPath string) error {
	audioSrc, hasAudio := c.Audio()

	if wavPath != "" && hasAudio {
		recorder := frontend.NewWAVRecorder(wavPath, audioSrc.SampleRate())
		for i := 0; i < frames; i++ {
			c.RunFrame()
			recorder.Append(audioSrc.AudioSamples())
		}
		if err := recorder.Close(); err != nil {
			return err
		}
	} else {
		remaining := frames
		c.RunLoop(func() bool {
			remaining--
			return remaining >= 0
		})
	}

	log.Printf("ran %d frames", frames)

	if shotPath != "" {
		video, ok := c.Video()
		if !ok {
			return fmt.Errorf("platform %s has no video output", c.Platform())
		}
		w, h := c.DesiredVideoDimensions()
		if err := frontend.WriteScreenshot(shotPath, video.Framebuffer(), w, h, 1); err != nil {
			return err
		}
		log.Printf("wrote %s", shotPath)
	}
	return nil
}
