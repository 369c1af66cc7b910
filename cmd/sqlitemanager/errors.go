package main

import "errors"

var (
	ErrMissingDatabase  = errors.New("missing database identity")
	ErrInvalidDatabase  = errors.New("database identity must be name.ext")
	ErrMissingCommand   = errors.New("missing command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingArgument  = errors.New("missing required argument")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrInvalidFlag      = errors.New("invalid flag provided")
	ErrInvalidBindArgs  = errors.New("bind values must be a JSON array")
	ErrWriteOutput      = errors.New("failed to write output")
)
