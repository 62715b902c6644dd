package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spheroids/spheroids/buffer"
	"github.com/spheroids/spheroids/storage"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
)

func readInput(fileName string, skipHeader bool) (*buffer.Buffer, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case storage.DatFileExt:
		return storage.Load(fileName)
	case storage.CSVFileExt:
		return storage.LoadCSV(fileName, skipHeader)
	default:
		return nil, fmt.Errorf("unsupported input file %s, expected %s or %s", fileName, storage.DatFileExt, storage.CSVFileExt)
	}
}

func writeOutput(b *buffer.Buffer, fileName string) error {
	if fileName == "" {
		if *asText {
			text, err := storage.ToCompressedText(b)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		}
		return storage.WriteCSV(os.Stdout, b)
	}

	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case storage.DatFileExt:
		if err := storage.Flush(b, fileName); err != nil {
			return err
		}
	case storage.CSVFileExt:
		if err := storage.SaveCSV(b, fileName); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output file %s, expected %s or %s", fileName, storage.DatFileExt, storage.CSVFileExt)
	}

	log.Info("saved %v buffer (%s) to %s", b.Shape, humanize.Bytes(b.Bytes()), fileName)
	return nil
}

func runSingle(o op, cfg *config, inputFile, outputFile string) error {
	var in *buffer.Buffer
	if o.NeedsInput {
		if inputFile == "" {
			return fmt.Errorf("operation %s requires -input or -datapath", o.Name)
		}

		var err error
		if in, err = readInput(inputFile, *csvHeader); err != nil {
			return err
		}
		log.Debug("loaded %v buffer from %s", in.Shape, inputFile)
	}

	out, err := o.Callback(cfg, in)
	if err != nil {
		return err
	} else if out != nil {
		return writeOutput(out, outputFile)
	}
	return nil
}

func runBatch(o op, cfg *config, dataPath, outputPath string) error {
	if !o.NeedsInput {
		return fmt.Errorf("operation %s does not take inputs", o.Name)
	}

	inputs := storage.NewIndex(dataPath)
	if err := inputs.Load(); err != nil {
		return err
	}

	var outputs *storage.Index
	if outputPath != "" {
		outputs = storage.NewIndex(outputPath)
		if err := outputs.Load(); err != nil {
			return err
		}
	}

	log.Info("running %s on %d buffers from %s ...", o.Name, inputs.Size(), inputs.Path())

	return inputs.ForEach(func(name string, in *buffer.Buffer) error {
		if outputs == nil {
			fmt.Printf("# %s\n", name)
		}

		out, err := o.Callback(cfg, in)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		} else if out == nil {
			return nil
		} else if outputs != nil {
			return outputs.Put(name, out)
		}
		return writeOutput(out, "")
	})
}
