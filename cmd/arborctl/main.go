package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/arbordb/arbor/models"
	"github.com/arbordb/arbor/nestedset"
	"github.com/arbordb/arbor/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "arborctl",
		Usage:   "nested-set tree storage admin tool",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "database connection string for the tree database",
			Value:   "sqlite://data/arbor/arbor.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-conn",
			Usage:   "limit on size of database connection pool",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"ARBOR_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
	}
	app.Commands = []*cli.Command{
		migrateCmd,
		insertCmd,
		moveCmd,
		deleteCmd,
		saveCmd,
		pathCmd,
		treeCmd,
		searchCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func getManager(cctx *cli.Context) (*nestedset.Manager, error) {
	configLogger(cctx, os.Stderr)
	db, err := cliutil.SetupDatabase(cctx.String("db-url"), cctx.Int("max-db-conn"))
	if err != nil {
		return nil, fmt.Errorf("setting up database: %w", err)
	}
	return nestedset.NewManager(db, nil)
}

func argID(cctx *cli.Context, pos int) (uint, error) {
	raw := cctx.Args().Get(pos)
	if raw == "" {
		return 0, fmt.Errorf("missing node id argument")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", raw, err)
	}
	return uint(id), nil
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "create or update the node table schema",
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		return mgr.MigrateDatabase()
	},
}

var insertCmd = &cli.Command{
	Name:  "insert",
	Usage: "insert a new node",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "label", Usage: "display label"},
		&cli.StringFlag{Name: "code", Usage: "unique node code"},
		&cli.StringFlag{Name: "status", Usage: "payload status value"},
		&cli.UintFlag{Name: "parent", Usage: "append as last child of this node id"},
		&cli.UintFlag{Name: "before", Usage: "insert immediately before this node id"},
	},
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		node := &models.Node{
			Label:  cctx.String("label"),
			Code:   cctx.String("code"),
			Status: cctx.String("status"),
		}
		out, err := mgr.InsertNode(cctx.Context, node, cctx.Uint("parent"), cctx.Uint("before"))
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", out.ID)
		return nil
	},
}

var moveCmd = &cli.Command{
	Name:      "move",
	Usage:     "relocate a subtree",
	ArgsUsage: "<node-id>",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "parent", Usage: "append as last child of this node id"},
		&cli.UintFlag{Name: "after", Usage: "place immediately after this sibling node id"},
	},
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		id, err := argID(cctx, 0)
		if err != nil {
			return err
		}
		return mgr.MoveNode(cctx.Context, id, cctx.Uint("parent"), cctx.Uint("after"))
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "delete a node and its entire subtree",
	ArgsUsage: "<node-id>",
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		id, err := argID(cctx, 0)
		if err != nil {
			return err
		}
		return mgr.DeleteNode(cctx.Context, id)
	},
}

var saveCmd = &cli.Command{
	Name:      "save",
	Usage:     "update a node's payload fields",
	ArgsUsage: "<node-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "label"},
		&cli.StringFlag{Name: "code"},
		&cli.StringFlag{Name: "status"},
	},
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		id, err := argID(cctx, 0)
		if err != nil {
			return err
		}
		node, err := mgr.Repository().GetByID(cctx.Context, id)
		if err != nil {
			return err
		}
		if cctx.IsSet("label") {
			node.Label = cctx.String("label")
		}
		if cctx.IsSet("code") {
			node.Code = cctx.String("code")
		}
		if cctx.IsSet("status") {
			node.Status = cctx.String("status")
		}
		_, err = mgr.SaveNode(cctx.Context, node)
		return err
	},
}

var pathCmd = &cli.Command{
	Name:      "path",
	Usage:     "print the ancestor path of a node, root first",
	ArgsUsage: "<node-id>",
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		id, err := argID(cctx, 0)
		if err != nil {
			return err
		}
		path, err := mgr.GetPath(cctx.Context, id)
		if err != nil {
			return err
		}
		for _, n := range path {
			fmt.Printf("%d\t%d\t%s\t%s\n", n.ID, n.Level, n.Code, n.Label)
		}
		return nil
	},
}

var treeCmd = &cli.Command{
	Name:      "tree",
	Usage:     "print a subtree (the whole first tree if no id given)",
	ArgsUsage: "[node-id]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "depth", Usage: "levels to descend (default: full subtree)", Value: -1},
	},
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		var id uint
		if cctx.Args().Len() > 0 {
			id, err = argID(cctx, 0)
			if err != nil {
				return err
			}
		} else {
			root, err := mgr.Repository().GetRoot(cctx.Context, models.DirectionAsc)
			if err != nil {
				return err
			}
			if root == nil {
				return nil
			}
			id = root.ID
		}
		depth := models.DepthFull
		if d := cctx.Int("depth"); d >= 0 {
			depth = models.Depth(d)
		}
		tree, err := mgr.GetNode(cctx.Context, id, depth)
		if err != nil {
			return err
		}
		printTree(tree, 0)
		return nil
	},
}

func printTree(t *nestedset.Tree, indent int) {
	fmt.Printf("%s%d\t%s\t%s\n", strings.Repeat("  ", indent), t.Node.ID, t.Node.Code, t.Node.Label)
	for _, c := range t.Children {
		printTree(c, indent+1)
	}
}

var searchCmd = &cli.Command{
	Name:  "search",
	Usage: "list nodes, optionally filtered by status and bounded to a subtree",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "status", Usage: "only nodes with this status"},
		&cli.UintFlag{Name: "root", Usage: "restrict to the subtree of this node id"},
	},
	Action: func(cctx *cli.Context) error {
		mgr, err := getManager(cctx)
		if err != nil {
			return err
		}
		var pred nestedset.Predicate
		if cctx.IsSet("status") {
			pred = nestedset.StatusIs(cctx.String("status"))
		}
		nodes, err := mgr.SearchNodes(cctx.Context, pred, "", cctx.Uint("root"))
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Printf("%d\t%d\t%d\t%d\t%s\t%s\t%s\n", n.ID, n.Level, n.Lft, n.Rgt, n.Code, n.Status, n.Label)
		}
		return nil
	},
}
