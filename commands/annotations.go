package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/data/archive"
	"github.com/penwyp/go-claude-transcripts/internal/generator"
	"github.com/penwyp/go-claude-transcripts/internal/presentation/formatter"
)

var (
	storeDriver string
	storePath   string

	annotationKey      string
	annotationSession  string
	annotationPageSize int
	exportOutput       string
)

var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "Manage archived annotations",
	Long: `Annotations made in the browser can be exported to a JSON document. These commands keep such
documents in a local archive (bolt or sqlite), list them and check them against a transcript.`,
}

var annotationsImportCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import an export document into the archive, replacing the stored one",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsImport,
}

var annotationsExportCmd = &cobra.Command{
	Use:   "export <storage-key>",
	Short: "Write an archived annotation document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsExport,
}

var annotationsListCmd = &cobra.Command{
	Use:   "list [storage-key]",
	Short: "List archived storage keys, or the annotations under one key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnnotationsList,
}

var annotationsCheckCmd = &cobra.Command{
	Use:   "check <session.jsonl> [export.json]",
	Short: "Check which annotations still match a transcript",
	Long: `Resolves annotations against the anchors a generation of the transcript would produce.
Without an export document the archived document for the transcript's storage key is checked.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnnotationsCheck,
}

var annotationsAnchorsCmd = &cobra.Command{
	Use:   "anchors <session.jsonl>",
	Short: "List the anchor ids a generation of the transcript carries",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsAnchors,
}

var annotationsAddCmd = &cobra.Command{
	Use:   "add <session.jsonl> <anchor-id> <text>",
	Short: "Annotate a block of a transcript in the archive",
	Long: `Works like clicking a block in annotation mode: an existing annotation on the block is edited,
otherwise a new one is created. Empty text removes the annotation on the block.`,
	Args: cobra.ExactArgs(3),
	RunE: runAnnotationsAdd,
}

var annotationsRemoveCmd = &cobra.Command{
	Use:   "remove <session.jsonl> <annotation-id>",
	Short: "Remove one archived annotation of a transcript",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnnotationsRemove,
}

var annotationsDeleteCmd = &cobra.Command{
	Use:   "delete <storage-key>",
	Short: "Remove an archived annotation document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsDelete,
}

func init() {
	rootCmd.AddCommand(annotationsCmd)
	annotationsCmd.AddCommand(annotationsImportCmd, annotationsExportCmd, annotationsListCmd,
		annotationsCheckCmd, annotationsDeleteCmd, annotationsAnchorsCmd, annotationsAddCmd, annotationsRemoveCmd)

	annotationsCmd.PersistentFlags().StringVar(&storeDriver, "store", envDefaults.StoreDriver,
		"Archive driver (bolt, sqlite)")
	annotationsCmd.PersistentFlags().StringVar(&storePath, "store-path", envDefaults.StorePath,
		"Archive file (default ~/.go-claude-transcripts/annotations.<db|sqlite>)")
	annotationsCmd.PersistentFlags().IntVar(&annotationPageSize, "page-size", envDefaults.PageSize,
		"Prompts per page used when resolving against a transcript")

	annotationsImportCmd.Flags().StringVar(&annotationKey, "key", "",
		"Storage key to import under (default: the document's storage key)")
	annotationsImportCmd.Flags().StringVar(&annotationSession, "session", "",
		"Transcript to resolve anchors against; also sets the storage key")
	annotationsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Write to file instead of stdout")
}

func openArchive() (archive.KV, error) {
	path := storePath
	if path == "" {
		path = archive.DefaultPath(storeDriver)
	}
	return archive.Open(storeDriver, expandPath(path))
}

func runAnnotationsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(expandPath(args[0]))
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	doc, _, err := annotation.ParseDocument(data)
	if err != nil {
		return err
	}

	key := doc.StorageKey
	var anchors *annotation.AnchorSet
	if annotationSession != "" {
		session := expandPath(annotationSession)
		key = annotation.StorageKey(session)
		if anchors, err = generator.Anchors(session, annotationPageSize); err != nil {
			return err
		}
	}
	if annotationKey != "" {
		key = annotationKey
	}
	if key == "" {
		return fmt.Errorf("document has no storage key; pass --key or --session")
	}

	kv, err := openArchive()
	if err != nil {
		return err
	}
	defer kv.Close()

	rt := annotation.NewRuntime(annotation.NewStore(key), kv, anchors)
	report, err := rt.Import(data)
	if err != nil {
		return err
	}
	if rt.Notice != "" {
		return fmt.Errorf("store %s: %s", key, rt.Notice)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Imported %d annotations under %s", report.Imported, key)
	if report.Legacy {
		fmt.Fprint(w, " (legacy format)")
	}
	fmt.Fprintln(w)
	if report.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d empty annotations\n", report.Skipped)
	}
	if anchors != nil && report.Unresolved > 0 {
		fmt.Fprintf(w, "Unresolved: %d (anchors missing from %s)\n", report.Unresolved, annotationSession)
	}
	return nil
}

func runAnnotationsExport(cmd *cobra.Command, args []string) error {
	kv, err := openArchive()
	if err != nil {
		return err
	}
	defer kv.Close()

	data, err := kv.Get(args[0])
	if annotation.IsNotFound(err) {
		return fmt.Errorf("no annotations stored under %s", args[0])
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(expandPath(exportOutput), data, 0o644)
}

func runAnnotationsList(cmd *cobra.Command, args []string) error {
	kv, err := openArchive()
	if err != nil {
		return err
	}
	defer kv.Close()

	w := cmd.OutOrStdout()
	if len(args) == 0 {
		keys, err := kv.Keys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Fprintln(w, "No archived annotations")
		}
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
		return nil
	}

	store, err := loadStore(kv, args[0])
	if err != nil {
		return err
	}
	return printAnnotations(cmd, store)
}

func runAnnotationsCheck(cmd *cobra.Command, args []string) error {
	session := expandPath(args[0])
	anchors, err := generator.Anchors(session, annotationPageSize)
	if err != nil {
		return err
	}

	key := annotation.StorageKey(session)
	store := annotation.NewStore(key)
	if len(args) == 2 {
		data, err := os.ReadFile(expandPath(args[1]))
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		if _, err := store.ImportBytes(data, nil); err != nil {
			return err
		}
	} else {
		kv, err := openArchive()
		if err != nil {
			return err
		}
		defer kv.Close()
		if store, err = loadStore(kv, key); err != nil {
			return err
		}
	}

	unresolved := store.Resolve(anchors)
	if err := printAnnotations(cmd, store); err != nil {
		return err
	}
	if unresolved > 0 {
		return fmt.Errorf("%d of %d annotations do not match %s", unresolved, store.Len(), args[0])
	}
	return nil
}

func runAnnotationsDelete(cmd *cobra.Command, args []string) error {
	kv, err := openArchive()
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := kv.Delete(args[0]); err != nil {
		if annotation.IsNotFound(err) {
			return fmt.Errorf("no annotations stored under %s", args[0])
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runAnnotationsAnchors(cmd *cobra.Command, args []string) error {
	anchors, err := generator.Anchors(expandPath(args[0]), annotationPageSize)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, id := range anchors.IDs() {
		page, _ := anchors.Page(id)
		fmt.Fprintf(w, "%-24s page %d\n", id, page)
	}
	return nil
}

// openRuntime loads the archived annotations of a transcript into a runtime
// resolved against the transcript's anchors.
func openRuntime(sessionArg string) (*annotation.Runtime, func() error, error) {
	session := expandPath(sessionArg)
	anchors, err := generator.Anchors(session, annotationPageSize)
	if err != nil {
		return nil, nil, err
	}
	kv, err := openArchive()
	if err != nil {
		return nil, nil, err
	}
	rt := annotation.NewRuntime(annotation.NewStore(annotation.StorageKey(session)), kv, anchors)
	if err := rt.Load(); err != nil {
		kv.Close()
		return nil, nil, err
	}
	if rt.Notice != "" {
		kv.Close()
		return nil, nil, errors.New(rt.Notice)
	}
	return rt, kv.Close, nil
}

func runAnnotationsAdd(cmd *cobra.Command, args []string) error {
	rt, closeArchive, err := openRuntime(args[0])
	if err != nil {
		return err
	}
	defer closeArchive()

	rt.Start()
	defer rt.Finish()
	if err := rt.SelectBlock(args[1]); err != nil {
		return err
	}
	editing := rt.Authoring().AnnotationID
	if editing == "" && strings.TrimSpace(args[2]) == "" {
		return fmt.Errorf("no annotation on %s to remove", args[1])
	}
	ann, err := rt.Save(args[2])
	if err != nil {
		return err
	}
	if rt.Notice != "" {
		return errors.New(rt.Notice)
	}

	w := cmd.OutOrStdout()
	switch {
	case ann.ID == "":
		fmt.Fprintf(w, "Removed annotation %s\n", editing)
	case editing != "":
		fmt.Fprintf(w, "Updated annotation %s on %s\n", ann.ID, ann.Target())
	default:
		fmt.Fprintf(w, "Added annotation %s on %s (page %d)\n", ann.ID, ann.Target(), ann.PageNumber)
	}
	fmt.Fprintf(w, "%s under %s\n", rt.StatusText(), rt.Store().StorageKey)
	return nil
}

func runAnnotationsRemove(cmd *cobra.Command, args []string) error {
	rt, closeArchive, err := openRuntime(args[0])
	if err != nil {
		return err
	}
	defer closeArchive()

	rt.Start()
	defer rt.Finish()
	if err := rt.SelectAnnotation(args[1]); err != nil {
		return err
	}
	if err := rt.Delete(); err != nil {
		return err
	}
	if rt.Notice != "" {
		return errors.New(rt.Notice)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed annotation %s; %s left\n", args[1], rt.StatusText())
	return nil
}

func loadStore(kv archive.KV, key string) (*annotation.Store, error) {
	data, err := kv.Get(key)
	if annotation.IsNotFound(err) {
		return nil, fmt.Errorf("no annotations stored under %s", key)
	}
	if err != nil {
		return nil, err
	}
	store := annotation.NewStore(key)
	if _, err := store.ImportBytes(data, nil); err != nil {
		return nil, err
	}
	return store, nil
}

func printAnnotations(cmd *cobra.Command, store *annotation.Store) error {
	f, err := formatter.New(reportFormat, os.Stdout)
	if err != nil {
		return err
	}
	var rows []formatter.AnnotationRow
	for _, a := range store.Sorted() {
		rows = append(rows, formatter.AnnotationRow{
			ID:         a.ID,
			Target:     a.Target(),
			Page:       a.PageNumber,
			Unresolved: a.Unresolved,
			Text:       a.Text,
			ModifiedAt: a.ModifiedAt,
		})
	}
	return f.FormatAnnotations(cmd.OutOrStdout(), rows)
}
