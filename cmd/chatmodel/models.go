package main

import (
	"context"
	"fmt"

	"github.com/casualjim/chatmodel/models"
	"github.com/casualjim/chatmodel/router"
	"github.com/fatih/color"
)

func runModels(_ context.Context, env *environment, args []string) error {
	all := env.flags.Bool("all", false, "also list identifiers that are not user selectable")
	if err := env.load(args); err != nil {
		return err
	}

	r, err := router.New(env.cfg)
	if err != nil {
		return err
	}

	for _, m := range models.ChatModels() {
		marker := " "
		if m.ID == models.DefaultChatModel {
			marker = color.GreenString("*")
		}
		fmt.Fprintf(env.stdout, "%s %s %-22s %s\n", marker, color.CyanString("%-30s", m.ID), m.Name, r.Resolve(m.ID).Name())
		fmt.Fprintf(env.stdout, "  %s\n", color.HiBlackString(m.Description))
	}

	if *all {
		fmt.Fprintln(env.stdout)
		for _, id := range r.Identifiers() {
			fmt.Fprintf(env.stdout, "  %s %-10s %s\n", color.CyanString("%-30s", id), router.ClassOf(id), r.Resolve(id).Name())
		}
		fmt.Fprintf(env.stdout, "  %s %-10s %s\n", color.CyanString("%-30s", "(default)"), router.DefaultClass, r.Class(router.DefaultClass).Name())
	}
	return nil
}
