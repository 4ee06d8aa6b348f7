package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	CapturePath   string
	OutputFile    string
	Format        ImageFormat
	ColumnWidth   int
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:      ImagePNG,
		ColumnWidth: 4,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat string
	flag.StringVar(&c.DBPath, "db", "", "Path to the session database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.CapturePath, "capture", "", "Path to a raw binary capture file (alternative to -db)")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.IntVar(&c.ColumnWidth, "col-width", 4, "Width of one reading column in pixels")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as the legend and summary line")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	var err error
	switch {
	case c.DBPath == "" && c.CapturePath == "":
		err = errors.New("either a db path or a capture path is required")
	case c.DBPath != "" && c.CapturePath != "":
		err = errors.New("db path and capture path are mutually exclusive")
	case c.DBPath != "" && c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.ColumnWidth <= 0:
		err = errors.New("column width must be positive")
	default:
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
