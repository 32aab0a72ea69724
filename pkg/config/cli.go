package config

import "github.com/alecthomas/kong"

type Cli struct {
	Version kong.VersionFlag
	Help    HelpFlag `kong:"name=help,help='Show context-sensitive help.'"`

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	HTML        string   `kong:"name=html,short=h,type=existingfile,help='HTML document to embed after the image.'"`
	PDF         string   `kong:"name=pdf,short=p,type=existingfile,help='PDF document to embed.'"`
	Zips        []string `kong:"name=zip,short=z,type=existingfile,sep=none,help='ZIP-like archive to fuse, can be repeated. Later archives win on conflicting paths.'"`
	Extra       string   `kong:"name=extra,short=e,type=existingfile,help='File whose bytes are written into the header atom free space.'"`
	NoFtypSplit bool     `kong:"name=no-ftyp-split,default=false,help='Do not carve a standalone ftyp atom out of the header atom.'"`
	TmpDir      string   `kong:"name=tmpdir,type=existingdir,env=BEHEADER_TMPDIR,help='Directory for temporary files. (eg. /tmp)'"`

	ConvertBin string `kong:"name=convert-bin,env=BEHEADER_CONVERT_BIN,default=convert,help='ImageMagick convert command.'"`
	FFmpegBin  string `kong:"name=ffmpeg-bin,env=BEHEADER_FFMPEG_BIN,default=ffmpeg,help='ffmpeg command.'"`
	FFprobeBin string `kong:"name=ffprobe-bin,env=BEHEADER_FFPROBE_BIN,default=ffprobe,help='ffprobe command.'"`
	MP4EditBin string `kong:"name=mp4edit-bin,env=BEHEADER_MP4EDIT_BIN,default=mp4edit,help='Bento4 mp4edit command.'"`

	Output      string   `kong:"arg,required,name=output,type=path,help='Output file. (eg. ./out.ico)'"`
	Image       string   `kong:"arg,required,name=image,type=existingfile,help='Image to show as icon.'"`
	Media       string   `kong:"arg,required,name=video,type=existingfile,help='Video or audio to play as MP4.'"`
	Appendables []string `kong:"arg,optional,name=appendable,type=existingfile,help='Files appended verbatim before the archive.'"`
}

// HelpFlag prints the usage and exits. It replaces the default help flag so
// that -h is free for --html.
type HelpFlag bool

// BeforeReset runs before required arguments are checked.
func (h HelpFlag) BeforeReset(ctx *kong.Context) error {
	if err := ctx.PrintUsage(false); err != nil {
		return err
	}
	ctx.Kong.Exit(0)
	return nil
}
